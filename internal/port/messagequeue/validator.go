package messagequeue

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects pass validation.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	switch subject {
	case SubjectCacheInvalidated:
		var p CacheInvalidatedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if p.Origin == "" {
			return fmt.Errorf("schema validation failed for %s: %w", subject, errors.New("origin is required"))
		}
		if len(p.Keys) == 0 && p.Pattern == "" {
			return fmt.Errorf("schema validation failed for %s: %w", subject, errors.New("keys or pattern is required"))
		}
	}
	return nil
}
