package ports

import (
	"context"
)

// EventPublisher publishes domain events to the message broker. Publication is
// best-effort: a broker outage must never fail the money movement it follows.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body interface{}) error
	Close()
}

// AttemptLimiter is a durable fixed-window counter shared across server
// instances, backing PIN lockout and endpoint rate limits.
type AttemptLimiter interface {
	// Consume increments the counter for scope/subject and returns the count
	// within the current window plus the seconds until the window resets.
	Consume(ctx context.Context, scope, subject string, limit int, windowSeconds int) (count int, retryAfterSeconds int, err error)
	// Reset clears the counter, e.g. after a successful PIN entry.
	Reset(ctx context.Context, scope, subject string) error
}
