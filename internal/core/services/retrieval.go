package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/warraq-labs/warraq/internal/core/domain"
	"github.com/warraq-labs/warraq/internal/core/ports/driven"
	"github.com/warraq-labs/warraq/internal/core/ports/driving"
	"github.com/warraq-labs/warraq/internal/index/bm25"
	"github.com/warraq-labs/warraq/internal/index/dense"
	"github.com/warraq-labs/warraq/internal/logger"
)

// Default ranking parameters.
const (
	// DefaultLexicalWeight and DefaultSemanticWeight blend the two
	// score components. They favour the semantic signal; exact term
	// matches still surface through the lexical share.
	DefaultLexicalWeight  = 0.35
	DefaultSemanticWeight = 0.65

	// DefaultMinScore is the combined-score floor below which hits
	// are discarded rather than padded into the result.
	DefaultMinScore = 0.25

	// DefaultTopK caps the result size when the caller does not ask
	// for a specific k.
	DefaultTopK = 20
)

// RetrievalConfig tunes ranking. The zero value is not useful; start
// from DefaultRetrievalConfig.
type RetrievalConfig struct {
	LexicalWeight  float64
	SemanticWeight float64
	MinScore       float64
	TopK           int
}

// DefaultRetrievalConfig returns the standard ranking parameters.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		LexicalWeight:  DefaultLexicalWeight,
		SemanticWeight: DefaultSemanticWeight,
		MinScore:       DefaultMinScore,
		TopK:           DefaultTopK,
	}
}

// RetrievalService ranks corpus chunks against queries using the
// current index generation.
type RetrievalService struct {
	index    *IndexService
	embedder driven.EmbeddingService
	cfg      RetrievalConfig
}

var _ driving.RetrievalService = (*RetrievalService)(nil)

// NewRetrievalService creates a retrieval service over the given index
// service. embedder may be nil; queries then rank lexical-only even if
// a semantic matrix is resident. Weights are normalised to sum to one
// so combined scores stay within [0,1].
func NewRetrievalService(index *IndexService, embedder driven.EmbeddingService, cfg RetrievalConfig) *RetrievalService {
	if cfg.LexicalWeight <= 0 && cfg.SemanticWeight <= 0 {
		cfg.LexicalWeight = DefaultLexicalWeight
		cfg.SemanticWeight = DefaultSemanticWeight
	}
	if cfg.LexicalWeight < 0 {
		cfg.LexicalWeight = 0
	}
	if cfg.SemanticWeight < 0 {
		cfg.SemanticWeight = 0
	}
	sum := cfg.LexicalWeight + cfg.SemanticWeight
	cfg.LexicalWeight /= sum
	cfg.SemanticWeight /= sum

	if cfg.MinScore < 0 {
		cfg.MinScore = 0
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}

	return &RetrievalService{
		index:    index,
		embedder: embedder,
		cfg:      cfg,
	}
}

// Status reports the resident index state without forcing a build.
func (s *RetrievalService) Status(ctx context.Context) domain.IndexStatus {
	if idx := s.index.Peek(); idx != nil {
		return idx.Status()
	}
	return domain.IndexStatus{Mode: s.index.IntendedMode()}
}

// Search retrieves up to k ranked hits for the query. k <= 0 selects
// the configured default.
func (s *RetrievalService) Search(ctx context.Context, query string, k int) ([]domain.Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}
	if k <= 0 {
		k = s.cfg.TopK
	}

	idx, err := s.index.Current(ctx)
	if err != nil {
		return nil, err
	}

	logger.Section("Search")
	logger.Debug("Query: %q (k=%d, mode=%s)", query, k, idx.Mode())

	return s.retrieve(ctx, idx, query, k), nil
}

// Rebuild constructs a fresh index generation and reports the swap.
func (s *RetrievalService) Rebuild(ctx context.Context) (domain.RebuildReceipt, error) {
	jobID := uuid.NewString()
	logger.Section("Index Rebuild")
	logger.Info("Rebuild %s started", jobID)

	started := time.Now().UTC()
	idx, err := s.index.Rebuild(ctx)
	if err != nil {
		logger.Warn("Rebuild %s failed: %v", jobID, err)
		return domain.RebuildReceipt{}, err
	}
	finished := time.Now().UTC()
	logger.Info("Rebuild %s finished in %s (%d chunks)", jobID, finished.Sub(started).Round(time.Millisecond), idx.Len())

	return domain.RebuildReceipt{
		JobID:    jobID,
		Started:  started,
		Finished: finished,
		Status:   idx.Status(),
	}, nil
}

// retrieve scores every chunk, then walks the ranking collecting up to
// k hits above the score floor, collapsing duplicate (document, page)
// keys onto their best-ranked occurrence.
func (s *RetrievalService) retrieve(ctx context.Context, idx *Index, query string, k int) []domain.Hit {
	if idx.Len() == 0 {
		return []domain.Hit{}
	}

	lexical := normalise(idx.lexical.Scores(bm25.Tokenise(query)))

	combined := lexical
	var semantic []float64
	if idx.matrix != nil && s.embedder != nil {
		scores, err := s.semanticScores(ctx, idx, query)
		if err != nil {
			// The resident matrix is fine; only this query could not
			// be embedded. Rank on the lexical component alone.
			logger.Warn("Query embedding failed, ranking lexical-only: %v", err)
		} else {
			semantic = scores
			combined = blend(lexical, semantic, s.cfg.LexicalWeight, s.cfg.SemanticWeight)
		}
	}

	hits := make([]domain.Hit, 0, k)
	seen := make(map[domain.ChunkKey]struct{}, k)
	for _, i := range argsortDesc(combined) {
		if combined[i] < s.cfg.MinScore {
			break
		}
		key := idx.chunks[i].Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		hit := domain.Hit{
			Chunk:        idx.chunks[i],
			Score:        combined[i],
			LexicalScore: lexical[i],
		}
		if semantic != nil {
			hit.SemanticScore = semantic[i]
		}
		hits = append(hits, hit)
		if len(hits) == k {
			break
		}
	}

	logger.Debug("Hits: %d", len(hits))
	return hits
}

// semanticScores embeds the query and scores it against the resident
// matrix.
func (s *RetrievalService) semanticScores(ctx context.Context, idx *Index, query string) ([]float64, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return idx.matrix.Scores(dense.Normalise(vec)), nil
}

// normalise maps raw lexical scores into [0,1] by dividing by the
// query's maximum, flooring negatives to zero. A non-positive maximum
// yields all zeros.
func normalise(scores []float64) []float64 {
	out := make([]float64, len(scores))
	max := 0.0
	for _, v := range scores {
		if v > max {
			max = v
		}
	}
	if max == 0 {
		return out
	}
	for i, v := range scores {
		if v > 0 {
			out[i] = v / max
		}
	}
	return out
}

// blend combines the two score components with the given weights.
func blend(lexical, semantic []float64, lw, sw float64) []float64 {
	out := make([]float64, len(lexical))
	for i := range out {
		out[i] = lw*lexical[i] + sw*semantic[i]
	}
	return out
}

// argsortDesc returns chunk ordinals in descending score order. Equal
// scores keep ascending ordinal order, so rankings are deterministic
// across runs.
func argsortDesc(scores []float64) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	return order
}
