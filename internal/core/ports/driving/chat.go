package driving

import (
	"context"

	"github.com/warraq-labs/warraq/internal/core/domain"
)

// ChatService answers a query as an event stream: one sources event,
// zero or more token events, exactly one done event.
type ChatService interface {
	// Stream validates the query, retrieves context and starts the
	// answer stream. Returns domain.ErrEmptyQuery for blank queries
	// before any retrieval work. The returned channel is closed
	// after the done event or when ctx is cancelled.
	Stream(ctx context.Context, query string) (<-chan domain.StreamEvent, error)
}
