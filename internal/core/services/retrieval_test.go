package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warraq-labs/warraq/internal/core/domain"
	"github.com/warraq-labs/warraq/internal/index/bm25"
	"github.com/warraq-labs/warraq/internal/index/dense"
)

// taggedWords builds n distinct filler words under a tag so test
// documents do not share vocabulary by accident.
func taggedWords(tag string, n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("%s%d", tag, i)
	}
	return strings.Join(words, " ")
}

func mustMatrix(t *testing.T, vectors [][]float32) *dense.Matrix {
	t.Helper()
	m, err := dense.New(vectors)
	require.NoError(t, err)
	return m
}

// handIndex builds an index generation directly from chunks, bypassing
// the corpus walk, for tests that need exact control over scores.
func handIndex(t *testing.T, chunks []domain.Chunk, vectors [][]float32) *Index {
	t.Helper()
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	idx := &Index{chunks: chunks, lexical: bm25.Build(texts)}
	if vectors != nil {
		idx.matrix = mustMatrix(t, vectors)
	}
	return idx
}

func newLexicalService(corpus *mockCorpus) *RetrievalService {
	return NewRetrievalService(NewIndexService(corpus, nil, nil, nil), nil, DefaultRetrievalConfig())
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	corpus := &mockCorpus{}
	svc := newLexicalService(corpus)

	for _, query := range []string{"", "   ", "\n\t"} {
		_, err := svc.Search(context.Background(), query, 5)
		assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	}
	// Validation happens before any build is triggered.
	assert.Zero(t, corpus.listCalls.Load())
}

func TestSearchLexicalRanking(t *testing.T) {
	corpus := &mockCorpus{docs: map[string]mockDoc{
		"idrisi-doc": {pages: map[string]string{"1": taggedWords("i", 18) + " tabula rogeriana"}},
		"other-a":    {pages: map[string]string{"1": taggedWords("a", 25)}},
		"other-b":    {pages: map[string]string{"1": taggedWords("b", 20)}},
	}}
	svc := newLexicalService(corpus)

	hits, err := svc.Search(context.Background(), "tabula rogeriana", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	assert.Equal(t, "idrisi-doc", hits[0].DocumentID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.InDelta(t, 1.0, hits[0].LexicalScore, 1e-9)
	assert.Zero(t, hits[0].SemanticScore)
}

func TestSearchHybridBlendsScores(t *testing.T) {
	textA := taggedWords("a", 20) + " alpha"
	textB := taggedWords("b", 20) + " beta"
	corpus := &mockCorpus{docs: map[string]mockDoc{
		"a-doc": {pages: map[string]string{"1": textA}},
		"b-doc": {pages: map[string]string{"1": textB}},
	}}
	embedder := &mockEmbedder{dims: 2, vectors: map[string][]float32{
		textA:   {1, 0},
		textB:   {0, 1},
		"mappa": {1, 0},
	}}
	svc := NewRetrievalService(NewIndexService(corpus, embedder, nil, nil), embedder, DefaultRetrievalConfig())

	// "mappa" matches no chunk lexically, so combined scores are the
	// semantic component alone times its weight.
	hits, err := svc.Search(context.Background(), "mappa", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "a-doc", hits[0].DocumentID)
	assert.InDelta(t, 0.65, hits[0].Score, 1e-9)
	assert.InDelta(t, 1.0, hits[0].SemanticScore, 1e-9)
	assert.Zero(t, hits[0].LexicalScore)

	assert.Equal(t, "b-doc", hits[1].DocumentID)
	assert.InDelta(t, 0.325, hits[1].Score, 1e-9)
	assert.InDelta(t, 0.5, hits[1].SemanticScore, 1e-9)
}

func TestRetrieveThresholdExcludesWeakHits(t *testing.T) {
	chunks := []domain.Chunk{
		testChunk("d1", "1", "first chunk body"),
		testChunk("d2", "1", "second chunk body"),
		testChunk("d3", "1", "third chunk body"),
	}
	idx := handIndex(t, chunks, [][]float32{{1, 0}, {0, 1}, {-1, 0}})
	embedder := &mockEmbedder{dims: 2, vectors: map[string][]float32{"unrelated": {1, 0}}}

	cfg := DefaultRetrievalConfig()
	cfg.MinScore = 0.4
	svc := NewRetrievalService(NewIndexService(&mockCorpus{}, nil, nil, nil), embedder, cfg)

	// Semantic scores are 1.0, 0.5 and 0.0; only the first chunk's
	// combined 0.65 clears the floor.
	hits := svc.retrieve(context.Background(), idx, "unrelated", 10)
	require.Len(t, hits, 1)
	assert.Equal(t, "d1", hits[0].DocumentID)
}

func TestRetrieveCollapsesDuplicatePages(t *testing.T) {
	chunks := []domain.Chunk{
		testChunk("doc", "4", "window one"),
		testChunk("doc", "4", "window two"),
		testChunk("doc", "9", "another page"),
	}
	vectors := [][]float32{{1, 0}, {0.8, 0.6}, {0.2, 0.9798}}
	idx := handIndex(t, chunks, vectors)
	embedder := &mockEmbedder{dims: 2, vectors: map[string][]float32{"unrelated": {1, 0}}}
	svc := NewRetrievalService(NewIndexService(&mockCorpus{}, nil, nil, nil), embedder, DefaultRetrievalConfig())

	hits := svc.retrieve(context.Background(), idx, "unrelated", 10)
	require.Len(t, hits, 2)
	assert.Equal(t, "window one", hits[0].Text)
	assert.Equal(t, "9", hits[1].Position)
}

func TestRetrieveCapsAtK(t *testing.T) {
	chunks := []domain.Chunk{
		testChunk("d1", "1", "chunk one"),
		testChunk("d2", "1", "chunk two"),
		testChunk("d3", "1", "chunk three"),
	}
	same := [][]float32{{1, 0}, {1, 0}, {1, 0}}
	idx := handIndex(t, chunks, same)
	embedder := &mockEmbedder{dims: 2, vectors: map[string][]float32{"unrelated": {1, 0}}}
	svc := NewRetrievalService(NewIndexService(&mockCorpus{}, nil, nil, nil), embedder, DefaultRetrievalConfig())

	hits := svc.retrieve(context.Background(), idx, "unrelated", 2)
	require.Len(t, hits, 2)
	// Ties resolve by chunk ordinal.
	assert.Equal(t, "d1", hits[0].DocumentID)
	assert.Equal(t, "d2", hits[1].DocumentID)
}

func TestSearchDefaultKWhenNonPositive(t *testing.T) {
	corpus := &mockCorpus{docs: map[string]mockDoc{
		"d1": {pages: map[string]string{"1": "qibla " + taggedWords("a", 19)}},
		"d2": {pages: map[string]string{"1": "qibla " + taggedWords("b", 20)}},
		"d3": {pages: map[string]string{"1": "qibla " + taggedWords("c", 21)}},
	}}
	cfg := DefaultRetrievalConfig()
	cfg.TopK = 1
	svc := NewRetrievalService(NewIndexService(corpus, nil, nil, nil), nil, cfg)

	hits, err := svc.Search(context.Background(), "qibla", 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = svc.Search(context.Background(), "qibla", 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestRetrieveFallsBackWhenQueryEmbeddingFails(t *testing.T) {
	chunks := []domain.Chunk{
		testChunk("d1", "1", "astrolabe "+taggedWords("a", 19)),
		testChunk("d2", "1", taggedWords("b", 20)),
		testChunk("d3", "1", taggedWords("c", 20)),
	}
	idx := handIndex(t, chunks, [][]float32{{1, 0}, {0, 1}, {0, 1}})
	embedder := &mockEmbedder{dims: 2, embedErr: errors.New("embedding backend down")}
	svc := NewRetrievalService(NewIndexService(&mockCorpus{}, nil, nil, nil), embedder, DefaultRetrievalConfig())

	hits := svc.retrieve(context.Background(), idx, "astrolabe", 10)
	require.Len(t, hits, 1)
	assert.Equal(t, "d1", hits[0].DocumentID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.InDelta(t, 1.0, hits[0].LexicalScore, 1e-9)
	assert.Zero(t, hits[0].SemanticScore)
	assert.Equal(t, int32(1), embedder.embedCalls.Load())
}

func TestSearchEmptyCorpusReturnsEmpty(t *testing.T) {
	svc := newLexicalService(&mockCorpus{})

	hits, err := svc.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestStatusDoesNotTriggerBuild(t *testing.T) {
	corpus := &mockCorpus{docs: map[string]mockDoc{
		"alpha": {pages: map[string]string{"1": testWords(30)}},
	}}
	embedder := &mockEmbedder{dims: 2}
	svc := NewRetrievalService(NewIndexService(corpus, embedder, nil, nil), embedder, DefaultRetrievalConfig())

	status := svc.Status(context.Background())
	assert.False(t, status.Built)
	assert.Equal(t, domain.ModeHybrid, status.Mode)
	assert.Zero(t, corpus.listCalls.Load())

	_, err := svc.Search(context.Background(), "word0", 5)
	require.NoError(t, err)

	status = svc.Status(context.Background())
	assert.True(t, status.Built)
	assert.Equal(t, 1, status.ChunkCount)
	assert.Equal(t, 1, status.DocumentCount)
}

func TestRebuildReceipt(t *testing.T) {
	corpus := &mockCorpus{docs: map[string]mockDoc{
		"alpha": {pages: map[string]string{"1": testWords(30)}},
	}}
	svc := newLexicalService(corpus)

	receipt, err := svc.Rebuild(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.JobID)
	assert.False(t, receipt.Finished.Before(receipt.Started))
	assert.True(t, receipt.Status.Built)
	assert.Equal(t, 1, receipt.Status.ChunkCount)
}

func TestWeightsNormaliseToUnitSum(t *testing.T) {
	chunks := []domain.Chunk{testChunk("d1", "1", "sole chunk")}
	idx := handIndex(t, chunks, [][]float32{{1, 0}})
	embedder := &mockEmbedder{dims: 2, vectors: map[string][]float32{"unrelated": {1, 0}}}

	// Percent-style weights behave exactly like their normalised form.
	svc := NewRetrievalService(NewIndexService(&mockCorpus{}, nil, nil, nil), embedder, RetrievalConfig{
		LexicalWeight:  35,
		SemanticWeight: 65,
		MinScore:       DefaultMinScore,
		TopK:           DefaultTopK,
	})

	hits := svc.retrieve(context.Background(), idx, "unrelated", 5)
	require.Len(t, hits, 1)
	assert.InDelta(t, 0.65, hits[0].Score, 1e-9)
}

func TestNormalise(t *testing.T) {
	out := normalise([]float64{2, 4, 0, -1})
	assert.InDeltaSlice(t, []float64{0.5, 1, 0, 0}, out, 1e-9)

	assert.Equal(t, []float64{0, 0}, normalise([]float64{0, -3}))
	assert.Empty(t, normalise(nil))
}

func TestArgsortDescStableTies(t *testing.T) {
	assert.Equal(t, []int{1, 0, 2}, argsortDesc([]float64{0.5, 0.9, 0.5}))
	assert.Equal(t, []int{0, 1, 2}, argsortDesc([]float64{0.7, 0.7, 0.7}))
}
