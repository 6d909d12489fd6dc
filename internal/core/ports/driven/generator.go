package driven

import "context"

// Generator streams answer text from a language model backend.
// One implementation exists per provider; selection happens once at
// configuration time, never in the request path.
type Generator interface {
	// Stream sends the system instruction and user message to the
	// backend and returns a channel of text fragments plus a channel
	// carrying at most one mid-stream error. The fragment channel is
	// closed when generation finishes or the context is cancelled.
	// A non-nil error return means the request never started.
	Stream(ctx context.Context, system, user string) (<-chan string, <-chan error, error)

	// ModelName returns the backend model identifier.
	ModelName() string

	// Ping validates the backend is reachable and the credential is
	// accepted.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
