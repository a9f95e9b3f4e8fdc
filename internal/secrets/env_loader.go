package secrets

import (
	"fmt"
	"os"
	"strings"
)

// EnvLoader returns a Loader that reads the specified keys. KEY_FILE, when
// set, names a file holding the value (Docker/Kubernetes secret mounts) and
// wins over KEY. Keys found nowhere fall back to defaults.
func EnvLoader(defaults map[string]string, keys ...string) Loader {
	return func() (map[string]string, error) {
		vals := make(map[string]string, len(keys))
		for _, k := range keys {
			if path := os.Getenv(k + "_FILE"); path != "" {
				data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator env
				if err != nil {
					return nil, fmt.Errorf("read %s_FILE: %w", k, err)
				}
				vals[k] = strings.TrimSpace(string(data))
				continue
			}
			if v := os.Getenv(k); v != "" {
				vals[k] = v
				continue
			}
			if v := defaults[k]; v != "" {
				vals[k] = v
			}
		}
		return vals, nil
	}
}
