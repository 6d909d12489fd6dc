package driven

import "context"

// VectorCache persists the embedding matrix between runs so an
// unchanged corpus skips re-embedding. Entries are keyed by a corpus
// fingerprint plus the embedding model name; any read problem is a
// miss, never a failure.
type VectorCache interface {
	// Load returns the cached matrix for the exact fingerprint and
	// model. Returns domain.ErrCacheMiss when the cache is absent,
	// written for a different corpus or model, or unreadable.
	Load(ctx context.Context, fingerprint, model string) ([][]float32, error)

	// Store atomically replaces the cache with the given matrix.
	// A crash mid-store must never leave a matrix whose row count
	// disagrees with its fingerprint.
	Store(ctx context.Context, fingerprint, model string, vectors [][]float32) error

	// Close releases resources.
	Close() error
}
