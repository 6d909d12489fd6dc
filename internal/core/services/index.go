package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/warraq-labs/warraq/internal/chunker"
	"github.com/warraq-labs/warraq/internal/core/domain"
	"github.com/warraq-labs/warraq/internal/core/ports/driven"
	"github.com/warraq-labs/warraq/internal/index/bm25"
	"github.com/warraq-labs/warraq/internal/index/dense"
	"github.com/warraq-labs/warraq/internal/logger"
)

// Embedding build parameters.
const (
	// DefaultEmbedWorkers bounds concurrent embedding batches during
	// a build.
	DefaultEmbedWorkers = 4

	// DefaultEmbedBatch is the number of chunk texts sent per
	// embedding request.
	DefaultEmbedBatch = 64
)

// Index is one immutable build generation: the chunk sequence plus the
// scoring structures aligned to it by ordinal. Readers obtain a
// generation from IndexService.Current and keep it for the whole
// request; a concurrent rebuild never mutates it.
type Index struct {
	chunks  []domain.Chunk
	lexical *bm25.Index
	matrix  *dense.Matrix // nil in lexical-only mode
	stats   domain.IndexStats
}

// Len returns the generation's chunk count.
func (x *Index) Len() int {
	return len(x.chunks)
}

// Mode reports which signals the generation can score with.
func (x *Index) Mode() domain.Mode {
	if x.matrix != nil {
		return domain.ModeHybrid
	}
	return domain.ModeLexicalOnly
}

// Stats returns the generation's build statistics.
func (x *Index) Stats() domain.IndexStats {
	return x.stats
}

// Status projects the generation into the external status shape.
func (x *Index) Status() domain.IndexStatus {
	return domain.IndexStatus{
		Built:         true,
		ChunkCount:    len(x.chunks),
		DocumentCount: x.stats.Documents,
		Mode:          x.Mode(),
		Stats:         x.stats,
	}
}

// IndexService builds index generations from the corpus source and
// hands out the current one. The first reader to need an index pays
// for the build; concurrent callers wait on the same build rather than
// starting their own.
type IndexService struct {
	corpus   driven.CorpusSource
	embedder driven.EmbeddingService
	cache    driven.VectorCache
	splitter *chunker.Chunker

	workers int
	batch   int

	buildMu sync.Mutex
	current atomic.Pointer[Index]
}

// NewIndexService creates an index service. embedder and cache may be
// nil: a nil embedder pins the service to lexical-only mode, a nil
// cache disables embedding reuse across runs. A nil splitter gets the
// default chunking parameters.
func NewIndexService(corpus driven.CorpusSource, embedder driven.EmbeddingService, cache driven.VectorCache, splitter *chunker.Chunker) *IndexService {
	if splitter == nil {
		splitter = chunker.New()
	}
	return &IndexService{
		corpus:   corpus,
		embedder: embedder,
		cache:    cache,
		splitter: splitter,
		workers:  DefaultEmbedWorkers,
		batch:    DefaultEmbedBatch,
	}
}

// Current returns the resident generation, building one first if none
// exists. Build failures leave the service empty so the next caller
// retries; the error wraps domain.ErrIndexNotReady.
func (s *IndexService) Current(ctx context.Context) (*Index, error) {
	if idx := s.current.Load(); idx != nil {
		return idx, nil
	}

	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	// Another caller may have finished the build while we waited.
	if idx := s.current.Load(); idx != nil {
		return idx, nil
	}

	idx, err := s.build(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexNotReady, err)
	}
	s.current.Store(idx)
	return idx, nil
}

// Peek returns the resident generation without triggering a build, or
// nil when none has been built yet.
func (s *IndexService) Peek() *Index {
	return s.current.Load()
}

// IntendedMode reports the mode the next build will produce, used for
// status before any generation exists.
func (s *IndexService) IntendedMode() domain.Mode {
	if s.embedder != nil {
		return domain.ModeHybrid
	}
	return domain.ModeLexicalOnly
}

// Rebuild constructs a fresh generation and swaps it in atomically.
// Readers holding the old generation are unaffected; a failed rebuild
// keeps the old generation resident.
func (s *IndexService) Rebuild(ctx context.Context) (*Index, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	idx, err := s.build(ctx)
	if err != nil {
		return nil, fmt.Errorf("rebuild index: %w", err)
	}
	s.current.Store(idx)
	return idx, nil
}

// build walks the corpus, chunks every document and constructs the
// scoring structures. The chunk slice ordering defines the ordinals
// both indexes score by.
func (s *IndexService) build(ctx context.Context) (*Index, error) {
	logger.Section("Index Build")
	started := time.Now()

	ids, err := s.corpus.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	sort.Strings(ids)
	logger.Debug("Corpus documents: %d", len(ids))

	var (
		chunks []domain.Chunk
		stats  domain.IndexStats
		pages  = make(map[domain.ChunkKey]struct{})
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		meta, err := s.corpus.Metadata(ctx, id)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("metadata for %s: %w", id, err)
		}

		docChunks, origin, err := s.splitter.Document(ctx, s.corpus, id, meta)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", id, err)
		}
		if origin == chunker.OriginNone {
			logger.Warn("No usable text artifacts for %s, skipping", id)
			continue
		}

		stats.Documents++
		if origin == chunker.OriginLayout {
			stats.LayoutChunks += len(docChunks)
		} else {
			stats.WindowChunks += len(docChunks)
		}
		for _, c := range docChunks {
			stats.Words += len(strings.Fields(c.Text))
			pages[c.Key()] = struct{}{}
		}
		chunks = append(chunks, docChunks...)
	}
	stats.Chunks = len(chunks)
	stats.Pages = len(pages)
	logger.Debug("Chunks: %d (%d layout, %d window) across %d documents",
		stats.Chunks, stats.LayoutChunks, stats.WindowChunks, stats.Documents)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	idx := &Index{
		chunks:  chunks,
		lexical: bm25.Build(texts),
	}

	if s.embedder != nil && len(texts) > 0 {
		matrix, cached, err := s.embedCorpus(ctx, texts)
		switch {
		case err != nil:
			logger.Warn("Embedding unavailable, continuing lexical-only: %v", err)
		default:
			idx.matrix = matrix
			stats.EmbeddingModel = s.embedder.ModelName()
			stats.CacheHit = cached
		}
	}

	stats.BuiltAt = time.Now().UTC()
	idx.stats = stats
	logger.Info("Index built in %s: %d chunks, mode %s", time.Since(started).Round(time.Millisecond), idx.Len(), idx.Mode())

	return idx, nil
}

// embedCorpus produces the normalised embedding matrix for the chunk
// texts, reusing the persisted cache when its fingerprint matches the
// current corpus. The boolean reports a cache hit.
func (s *IndexService) embedCorpus(ctx context.Context, texts []string) (*dense.Matrix, bool, error) {
	fingerprint := dense.Fingerprint(texts)
	model := s.embedder.ModelName()

	if s.cache != nil {
		vectors, err := s.cache.Load(ctx, fingerprint, model)
		switch {
		case err == nil && len(vectors) == len(texts):
			matrix, newErr := dense.New(vectors)
			if newErr == nil {
				logger.Debug("Embedding cache hit (%d vectors)", len(vectors))
				return matrix, true, nil
			}
			logger.Warn("Cached embeddings unusable, recomputing: %v", newErr)
		case err == nil:
			logger.Warn("Cached embeddings misaligned (%d vectors for %d chunks), recomputing", len(vectors), len(texts))
		case !errors.Is(err, domain.ErrCacheMiss):
			logger.Warn("Embedding cache read failed, recomputing: %v", err)
		}
	}

	logger.Info("Computing embeddings for %d chunks with %s", len(texts), model)
	vectors, err := s.embedTexts(ctx, texts)
	if err != nil {
		return nil, false, err
	}

	matrix, err := dense.New(vectors)
	if err != nil {
		return nil, false, fmt.Errorf("assemble embedding matrix: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Store(ctx, fingerprint, model, matrix.Rows()); err != nil {
			logger.Warn("Embedding cache write failed: %v", err)
		}
	}

	return matrix, false, nil
}

// embedTexts runs batched embedding requests with bounded concurrency,
// restoring result order by batch offset.
func (s *IndexService) embedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for start := 0; start < len(texts); start += s.batch {
		end := start + s.batch
		if end > len(texts) {
			end = len(texts)
		}

		batch := texts[start:end]
		offset := start
		g.Go(func() error {
			result, err := s.embedder.EmbedBatch(gctx, batch)
			if err != nil {
				return fmt.Errorf("embed batch at %d: %w", offset, err)
			}
			if len(result) != len(batch) {
				return fmt.Errorf("embed batch at %d: got %d vectors for %d texts", offset, len(result), len(batch))
			}
			copy(vectors[offset:], result)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return vectors, nil
}
