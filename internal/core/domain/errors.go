package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEmptyQuery indicates a blank query was rejected before
	// retrieval began.
	ErrEmptyQuery = errors.New("empty query")

	// ErrIndexNotReady indicates no index generation is resident yet.
	ErrIndexNotReady = errors.New("index not ready")

	// ErrCacheMiss indicates the embedding cache is absent, stale or
	// unreadable. Callers re-embed and overwrite; never fatal.
	ErrCacheMiss = errors.New("embedding cache miss")

	// ErrArtifactMissing indicates a document lacks the requested
	// extraction artifact. The chunker falls through its priority
	// list on this error.
	ErrArtifactMissing = errors.New("artifact missing")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured or reachable. The index degrades to lexical-only.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrGeneratorUnavailable indicates no generator backend has
	// credentials configured. Chat surfaces a visible configuration
	// message instead of crashing.
	ErrGeneratorUnavailable = errors.New("generator unavailable")
)
