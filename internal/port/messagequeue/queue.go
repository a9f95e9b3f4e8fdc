// Package messagequeue defines the bus that carries cache invalidation
// events between gateway replicas.
package messagequeue

import "context"

// SubjectCacheInvalidated carries a CacheInvalidatedPayload after every
// successful local invalidation.
const SubjectCacheInvalidated = "cache.invalidated"

// Handler processes one message. ctx carries the publisher's request ID
// when one was set.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue publishes events and delivers them to every subscribed replica.
type Queue interface {
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe delivers messages published after the call. A handler
	// error causes redelivery. The returned function stops delivery.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Drain flushes pending messages and closes the connection.
	Drain() error
	Close() error
	IsConnected() bool
}
