package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// EventCacheInvalidated is pushed after cache keys were removed.
const EventCacheInvalidated = "cache.invalidated"

// CacheInvalidatedEvent tells dashboards which cached views went stale.
type CacheInvalidatedEvent struct {
	Keys    []string `json:"keys,omitempty"`
	Pattern string   `json:"pattern,omitempty"`
	Deleted int64    `json:"deleted,omitempty"`
	Remote  bool     `json:"remote,omitempty"` // invalidated by another replica
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
