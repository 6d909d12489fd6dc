package driving

import (
	"context"

	"github.com/warraq-labs/warraq/internal/core/domain"
)

// RetrievalService exposes index state and ranked search to external
// actors. Search never invokes the generator.
type RetrievalService interface {
	// Status reports the resident index state without forcing a
	// build.
	Status(ctx context.Context) domain.IndexStatus

	// Search retrieves up to k ranked hits for the query, building
	// the index first if no generation is resident. k <= 0 selects
	// the configured default.
	Search(ctx context.Context, query string, k int) ([]domain.Hit, error)

	// Rebuild constructs a fresh index generation and swaps it in
	// atomically. In-flight readers keep the old generation.
	Rebuild(ctx context.Context) (domain.RebuildReceipt, error)
}
