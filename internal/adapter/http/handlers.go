package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/circularsync/gateway/internal/domain"
	"github.com/circularsync/gateway/internal/port/cache"
	"github.com/circularsync/gateway/internal/port/messagequeue"
	"github.com/circularsync/gateway/internal/service"
)

const (
	maxCacheKeyLength = 256
	maxKeysPerRequest = 100
	readyTimeout      = 2 * time.Second
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Dashboard *service.DashboardService
	Cache     *service.ReadThrough
	Store     cache.Cache        // health-checked by /health/ready when it implements cache.Pinger
	Queue     messagequeue.Queue // optional
}

// GetVerificationStats handles GET /api/admin/material-verification/stats
func (h *Handlers) GetVerificationStats(w http.ResponseWriter, r *http.Request) {
	res, err := h.Dashboard.VerificationStats(r.Context())
	if err != nil {
		writeDomainError(w, r, err, "verification stats")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DeleteVerificationStats handles DELETE /api/admin/material-verification/stats
func (h *Handlers) DeleteVerificationStats(w http.ResponseWriter, r *http.Request) {
	err := h.Dashboard.InvalidateVerificationStats(r.Context())
	writeInvalidation(w, r, err, "verification stats", nil)
}

// GetSubmissions handles GET /api/admin/material-submissions
func (h *Handlers) GetSubmissions(w http.ResponseWriter, r *http.Request) {
	res, err := h.Dashboard.SubmissionList(r.Context())
	if err != nil {
		writeDomainError(w, r, err, "material submissions")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DeleteSubmissions handles DELETE /api/admin/material-submissions
func (h *Handlers) DeleteSubmissions(w http.ResponseWriter, r *http.Request) {
	err := h.Dashboard.InvalidateSubmissions(r.Context())
	writeInvalidation(w, r, err, "material submissions", nil)
}

// GetWarehouseStats handles GET /api/warehouses/{id}/stats
func (h *Handlers) GetWarehouseStats(w http.ResponseWriter, r *http.Request) {
	res, err := h.Dashboard.WarehouseStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err, "warehouse stats")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DeleteWarehouseStats handles DELETE /api/warehouses/{id}/stats
func (h *Handlers) DeleteWarehouseStats(w http.ResponseWriter, r *http.Request) {
	err := h.Dashboard.InvalidateWarehouse(r.Context(), chi.URLParam(r, "id"))
	writeInvalidation(w, r, err, "warehouse stats", nil)
}

// GetUserProfile handles GET /api/users/{id}/profile
func (h *Handlers) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	res, err := h.Dashboard.UserProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err, "user profile")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DeleteUserProfile handles DELETE /api/users/{id}/profile
func (h *Handlers) DeleteUserProfile(w http.ResponseWriter, r *http.Request) {
	err := h.Dashboard.InvalidateUser(r.Context(), chi.URLParam(r, "id"))
	writeInvalidation(w, r, err, "user profile", nil)
}

// GetPriceRecommendation handles GET /api/pricing/{materialType}/recommendation
func (h *Handlers) GetPriceRecommendation(w http.ResponseWriter, r *http.Request) {
	res, err := h.Dashboard.PriceRecommendation(r.Context(), chi.URLParam(r, "materialType"))
	if err != nil {
		writeDomainError(w, r, err, "price recommendation")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DeletePriceRecommendation handles DELETE /api/pricing/{materialType}/recommendation
func (h *Handlers) DeletePriceRecommendation(w http.ResponseWriter, r *http.Request) {
	err := h.Dashboard.InvalidatePricing(r.Context(), chi.URLParam(r, "materialType"))
	writeInvalidation(w, r, err, "price recommendation", nil)
}

// DeleteCache handles DELETE /api/cache?key=..&key=.. and DELETE /api/cache?pattern=..
func (h *Handlers) DeleteCache(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	keys := q["key"]
	pattern := q.Get("pattern")

	switch {
	case len(keys) > 0 && pattern != "":
		writeInvalidation(w, r, fmt.Errorf("key and pattern are mutually exclusive: %w", domain.ErrValidation), "", nil)
		return
	case pattern != "":
		if len(pattern) > maxCacheKeyLength {
			writeInvalidation(w, r, fmt.Errorf("pattern too long: %w", domain.ErrValidation), "", nil)
			return
		}
		n, err := h.Cache.InvalidatePattern(r.Context(), pattern)
		if err != nil {
			writeInvalidation(w, r, err, "pattern", nil)
			return
		}
		writeInvalidation(w, r, nil, "pattern", &n)
		return
	}

	if err := validateKeys(keys); err != nil {
		writeInvalidation(w, r, err, "", nil)
		return
	}
	err := h.Cache.Invalidate(r.Context(), keys...)
	writeInvalidation(w, r, err, "key", nil)
}

func validateKeys(keys []string) error {
	if len(keys) == 0 {
		return fmt.Errorf("key or pattern is required: %w", domain.ErrValidation)
	}
	if len(keys) > maxKeysPerRequest {
		return fmt.Errorf("at most %d keys per request: %w", maxKeysPerRequest, domain.ErrValidation)
	}
	for _, k := range keys {
		if k == "" || len(k) > maxCacheKeyLength {
			return fmt.Errorf("invalid key %q: %w", k, domain.ErrValidation)
		}
	}
	return nil
}

// Health handles GET /health (liveness).
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /health/ready. A failing store is reported as degraded
// but never fails readiness; a disconnected queue does.
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	checks := map[string]string{}
	status := http.StatusOK

	checks["cache"] = "ok"
	if p, ok := h.Store.(cache.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			checks["cache"] = "degraded: " + err.Error()
		}
	}

	if h.Queue != nil {
		checks["nats"] = "ok"
		if !h.Queue.IsConnected() {
			checks["nats"] = "disconnected"
			status = http.StatusServiceUnavailable
		}
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	writeJSON(w, status, map[string]any{"status": state, "checks": checks})
}
