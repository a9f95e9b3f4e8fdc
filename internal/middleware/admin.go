package middleware

import (
	"crypto/subtle"
	"net/http"
)

// HeaderAdminToken carries the operator token on cache invalidation routes.
const HeaderAdminToken = "X-Admin-Token"

// StaticToken returns a token source that always yields token.
func StaticToken(token string) func() string {
	return func() string { return token }
}

// AdminToken returns middleware that requires header to equal the current
// value of token. The source is read per request so rotated secrets apply
// immediately; an empty value disables the check.
func AdminToken(token func() string, header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			want := token()
			if want == "" {
				next.ServeHTTP(w, r)
				return
			}
			got := r.Header.Get(header)
			if got == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing "+header)
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
				writeJSONError(w, http.StatusForbidden, "invalid "+header)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
