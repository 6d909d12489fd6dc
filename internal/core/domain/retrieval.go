package domain

// Mode reports which signals the resident index can score with.
type Mode string

const (
	// ModeHybrid blends lexical and semantic scores.
	ModeHybrid Mode = "hybrid"

	// ModeLexicalOnly means no embedding matrix is available and
	// ranking uses lexical scores alone.
	ModeLexicalOnly Mode = "lexical_only"
)

// Hit is a scored chunk returned for one query. All three scores are
// normalised to [0,1].
type Hit struct {
	Chunk

	// Score is the combined relevance score the ranking sorts by.
	Score float64

	// LexicalScore is the keyword-overlap component, normalised by
	// the query's maximum raw score.
	LexicalScore float64

	// SemanticScore is the embedding-similarity component. Zero in
	// lexical-only mode.
	SemanticScore float64
}
