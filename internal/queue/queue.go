// Package queue is the submission ingest path: cmd/judge-worker consumes
// SubmissionRequest messages from a topic and hands each to
// internal/pipeline. Grounded on internal/common/mq/interface.go, trimmed
// to the consumer side — this engine never produces queue messages itself,
// only consumes them and posts results back over HTTP via
// internal/callback.
package queue

import "context"

// Message is one queued submission envelope.
type Message struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Handler processes a single message. Returning an error leaves the
// message unacknowledged so the broker redelivers it.
type Handler func(ctx context.Context, msg Message) error

// Consumer reads messages from a topic and dispatches them to a Handler.
type Consumer interface {
	// Run blocks, dispatching messages to handle until ctx is cancelled or
	// an unrecoverable broker error occurs.
	Run(ctx context.Context, handle Handler) error
	Close() error
}
