package services

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/warraq-labs/warraq/internal/core/domain"
	"github.com/warraq-labs/warraq/internal/core/ports/driven"
	"github.com/warraq-labs/warraq/internal/core/ports/driving"
)

// mockDoc is one in-memory document's artifacts. Nil fields report
// domain.ErrArtifactMissing / domain.ErrNotFound like a real source.
type mockDoc struct {
	layout     []domain.LayoutPage
	pages      map[string]string
	translated map[string]string
	meta       *domain.DocumentMeta
}

type mockCorpus struct {
	docs      map[string]mockDoc
	docsErr   error
	listCalls atomic.Int32
}

var _ driven.CorpusSource = (*mockCorpus)(nil)

func (m *mockCorpus) Documents(ctx context.Context) ([]string, error) {
	m.listCalls.Add(1)
	if m.docsErr != nil {
		return nil, m.docsErr
	}
	ids := make([]string, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *mockCorpus) LayoutElements(ctx context.Context, docID string) ([]domain.LayoutPage, error) {
	doc, ok := m.docs[docID]
	if !ok || doc.layout == nil {
		return nil, domain.ErrArtifactMissing
	}
	return doc.layout, nil
}

func (m *mockCorpus) PageTexts(ctx context.Context, docID string) (map[string]string, error) {
	doc, ok := m.docs[docID]
	if !ok || doc.pages == nil {
		return nil, domain.ErrArtifactMissing
	}
	return doc.pages, nil
}

func (m *mockCorpus) TranslatedPageTexts(ctx context.Context, docID string) (map[string]string, error) {
	doc, ok := m.docs[docID]
	if !ok || doc.translated == nil {
		return nil, domain.ErrArtifactMissing
	}
	return doc.translated, nil
}

func (m *mockCorpus) Metadata(ctx context.Context, docID string) (domain.DocumentMeta, error) {
	doc, ok := m.docs[docID]
	if !ok || doc.meta == nil {
		return domain.DocumentMeta{}, domain.ErrNotFound
	}
	return *doc.meta, nil
}

// mockEmbedder returns canned vectors by exact text, a shared fallback
// otherwise.
type mockEmbedder struct {
	dims     int
	model    string
	vectors  map[string][]float32
	fallback []float32
	embedErr error
	batchErr error

	embedCalls atomic.Int32
	batchCalls atomic.Int32
}

var _ driven.EmbeddingService = (*mockEmbedder)(nil)

func (m *mockEmbedder) vector(text string) []float32 {
	src := m.fallback
	if v, ok := m.vectors[text]; ok {
		src = v
	}
	if src == nil {
		src = make([]float32, m.dims)
		if m.dims > 0 {
			src[0] = 1
		}
	}
	out := make([]float32, len(src))
	copy(out, src)
	return out
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.embedCalls.Add(1)
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vector(text), nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.batchCalls.Add(1)
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }

func (m *mockEmbedder) ModelName() string {
	if m.model == "" {
		return "mock-embed"
	}
	return m.model
}

func (m *mockEmbedder) Ping(ctx context.Context) error { return nil }
func (m *mockEmbedder) Close() error                   { return nil }

// mockCache keeps stored matrices keyed by fingerprint and model.
type mockCache struct {
	entries  map[string][][]float32
	loadErr  error
	storeErr error

	loads  atomic.Int32
	stores atomic.Int32
}

var _ driven.VectorCache = (*mockCache)(nil)

func cacheKey(fingerprint, model string) string {
	return fingerprint + "|" + model
}

func (m *mockCache) Load(ctx context.Context, fingerprint, model string) ([][]float32, error) {
	m.loads.Add(1)
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	vectors, ok := m.entries[cacheKey(fingerprint, model)]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return vectors, nil
}

func (m *mockCache) Store(ctx context.Context, fingerprint, model string, vectors [][]float32) error {
	m.stores.Add(1)
	if m.storeErr != nil {
		return m.storeErr
	}
	if m.entries == nil {
		m.entries = make(map[string][][]float32)
	}
	m.entries[cacheKey(fingerprint, model)] = vectors
	return nil
}

func (m *mockCache) Close() error { return nil }

// mockGenerator replays canned tokens, optionally failing before or
// mid-stream. Channels are unbuffered so event ordering in tests is
// deterministic.
type mockGenerator struct {
	tokens   []string
	midErr   error
	startErr error
	endless  bool

	gotSystem string
	gotUser   string
}

var _ driven.Generator = (*mockGenerator)(nil)

func (m *mockGenerator) Stream(ctx context.Context, system, user string) (<-chan string, <-chan error, error) {
	if m.startErr != nil {
		return nil, nil, m.startErr
	}
	m.gotSystem = system
	m.gotUser = user

	tokens := make(chan string)
	errs := make(chan error)
	go func() {
		defer close(tokens)
		defer close(errs)
		if m.endless {
			for {
				select {
				case tokens <- "tok ":
				case <-ctx.Done():
					return
				}
			}
		}
		for _, t := range m.tokens {
			select {
			case tokens <- t:
			case <-ctx.Done():
				return
			}
		}
		if m.midErr != nil {
			select {
			case errs <- m.midErr:
			case <-ctx.Done():
			}
		}
	}()
	return tokens, errs, nil
}

func (m *mockGenerator) ModelName() string              { return "mock-gen" }
func (m *mockGenerator) Ping(ctx context.Context) error { return nil }
func (m *mockGenerator) Close() error                   { return nil }

// stubRetrieval satisfies the retrieval port with canned hits, for
// chat tests that do not want a real index behind them.
type stubRetrieval struct {
	hits      []domain.Hit
	searchErr error
	status    domain.IndexStatus

	gotQuery string
	gotK     int
}

var _ driving.RetrievalService = (*stubRetrieval)(nil)

func (s *stubRetrieval) Status(ctx context.Context) domain.IndexStatus {
	return s.status
}

func (s *stubRetrieval) Search(ctx context.Context, query string, k int) ([]domain.Hit, error) {
	s.gotQuery, s.gotK = query, k
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.hits, nil
}

func (s *stubRetrieval) Rebuild(ctx context.Context) (domain.RebuildReceipt, error) {
	return domain.RebuildReceipt{}, nil
}

// testWords builds a space-joined run of n distinct words.
func testWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("word%d", i)
	}
	return strings.Join(words, " ")
}

// testChunk builds a chunk with the fields retrieval cares about.
func testChunk(docID, position, text string) domain.Chunk {
	return domain.Chunk{DocumentID: docID, Position: position, Text: text}
}
