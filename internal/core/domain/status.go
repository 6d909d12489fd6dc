package domain

import "time"

// IndexStats describes one build generation.
type IndexStats struct {
	// Documents counts documents contributing at least one chunk.
	Documents int `json:"documents"`

	// Pages counts pages seen across all chunked documents.
	Pages int `json:"pages"`

	// Chunks is the total chunk count.
	Chunks int `json:"chunks"`

	// Words is the total word count across chunk texts.
	Words int `json:"words"`

	// LayoutChunks counts chunks from structure-aware chunking.
	LayoutChunks int `json:"layout_chunks"`

	// WindowChunks counts chunks from fixed-window chunking over
	// flat page text.
	WindowChunks int `json:"window_chunks"`

	// EmbeddingModel names the model behind the semantic matrix.
	// Empty in lexical-only mode.
	EmbeddingModel string `json:"embedding_model,omitempty"`

	// CacheHit reports whether the semantic matrix was loaded from
	// the embedding cache rather than recomputed.
	CacheHit bool `json:"cache_hit"`

	// BuiltAt is when the generation finished building.
	BuiltAt time.Time `json:"built_at"`
}

// IndexStatus is the externally visible index state.
type IndexStatus struct {
	// Built reports whether a generation is resident.
	Built bool `json:"built"`

	// ChunkCount is the resident generation's chunk total.
	ChunkCount int `json:"chunk_count"`

	// DocumentCount is the resident generation's document total.
	DocumentCount int `json:"document_count"`

	// Mode reports hybrid or lexical-only scoring. Before the first
	// build it reflects the configured intent.
	Mode Mode `json:"mode"`

	// Stats carries build detail for the resident generation.
	Stats IndexStats `json:"stats"`
}

// RebuildReceipt reports one completed rebuild trigger.
type RebuildReceipt struct {
	// JobID ties the rebuild to its log lines.
	JobID string `json:"job_id"`

	// Started and Finished bound the rebuild wall time.
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`

	// Status is the post-rebuild index state.
	Status IndexStatus `json:"status"`
}
