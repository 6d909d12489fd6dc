package domain

// SourceCitation is the externally visible projection of a hit: what a
// client renders as a source, decoupled from the raw chunk text sent
// to the generator.
type SourceCitation struct {
	// Label is the short human-readable attribution, e.g.
	// "Miller, 1926". It equals the raw document identifier only
	// when the document has no usable metadata at all.
	Label string `json:"label"`

	// DocumentID is the owning document's identifier.
	DocumentID string `json:"document_id"`

	// Position is the page locator.
	Position string `json:"position"`

	Title   string `json:"title"`
	Authors string `json:"authors"`
	Year    string `json:"year"`

	// Score is the combined relevance score, rounded to three
	// decimals for display.
	Score float64 `json:"score"`

	// Snippet is a short display excerpt, truncated independently of
	// the full chunk text sent to the generator.
	Snippet string `json:"snippet"`
}
