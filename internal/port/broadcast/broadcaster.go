// Package broadcast defines the port for pushing cache events to connected dashboard clients.
package broadcast

import "context"

// Broadcaster fans an event out to every connected client. Delivery is best
// effort; implementations drop slow or closed connections.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
