package messagequeue

import "time"

// CacheInvalidatedPayload is the schema for cache.invalidated messages.
// Exactly one of Keys or Pattern is set.
type CacheInvalidatedPayload struct {
	ID      string    `json:"id"`
	Origin  string    `json:"origin"` // instance id of the publishing gateway
	Keys    []string  `json:"keys,omitempty"`
	Pattern string    `json:"pattern,omitempty"`
	At      time.Time `json:"at"`
}
