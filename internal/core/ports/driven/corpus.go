package driven

import (
	"context"

	"github.com/warraq-labs/warraq/internal/core/domain"
)

// CorpusSource reads the per-document extraction artifacts and the
// bibliographic inventory the index is built from. Implementations sit
// over whatever the extraction pipeline wrote; the core never touches
// the filesystem directly.
type CorpusSource interface {
	// Documents lists the corpus document identifiers in stable
	// (lexicographic) order.
	Documents(ctx context.Context) ([]string, error)

	// LayoutElements returns the document's structured layout pages
	// in ascending page order. Returns domain.ErrArtifactMissing
	// when the document has no usable layout artifact.
	LayoutElements(ctx context.Context, docID string) ([]domain.LayoutPage, error)

	// PageTexts returns the document's flat page texts keyed by page
	// number string. Returns domain.ErrArtifactMissing when absent.
	PageTexts(ctx context.Context, docID string) (map[string]string, error)

	// TranslatedPageTexts returns the machine-translated variant of
	// the page texts, preferred over the original when present.
	// Returns domain.ErrArtifactMissing when absent.
	TranslatedPageTexts(ctx context.Context, docID string) (map[string]string, error)

	// Metadata returns the document's bibliographic fields. Returns
	// domain.ErrNotFound for documents missing from the inventory;
	// callers fall back to identifier-derived labels.
	Metadata(ctx context.Context, docID string) (domain.DocumentMeta, error)
}
