package cli

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/warraq-labs/warraq/internal/core/domain"
	"github.com/warraq-labs/warraq/internal/core/ports/driving"
	"github.com/warraq-labs/warraq/internal/logger"
)

func TestMain(m *testing.M) {
	// Command tests assert on cobra output only.
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// stubRetrievalService is a canned driving.RetrievalService.
type stubRetrievalService struct {
	hits       []domain.Hit
	status     domain.IndexStatus
	receipt    domain.RebuildReceipt
	searchErr  error
	rebuildErr error

	gotQuery string
	gotK     int
	rebuilds int
}

func (s *stubRetrievalService) Status(_ context.Context) domain.IndexStatus {
	return s.status
}

func (s *stubRetrievalService) Search(_ context.Context, query string, k int) ([]domain.Hit, error) {
	s.gotQuery = query
	s.gotK = k
	return s.hits, s.searchErr
}

func (s *stubRetrievalService) Rebuild(_ context.Context) (domain.RebuildReceipt, error) {
	s.rebuilds++
	if s.rebuildErr != nil {
		return domain.RebuildReceipt{}, s.rebuildErr
	}
	s.status = s.receipt.Status
	return s.receipt, nil
}

// stubChatService replays canned events on a closed channel.
type stubChatService struct {
	events []domain.StreamEvent
	err    error
}

func (s *stubChatService) Stream(_ context.Context, _ string) (<-chan domain.StreamEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan domain.StreamEvent, len(s.events))
	for _, ev := range s.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

// installTestServices swaps the package services for stubs. The
// returned cleanup restores the uninitialised state, so the next test
// starts from scratch.
func installTestServices(r driving.RetrievalService, c driving.ChatService) func() {
	retrievalService = r
	chatService = c
	return func() {
		retrievalService = nil
		chatService = nil
	}
}

// setupTestServices installs a small populated corpus stub.
func setupTestServices() func() {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	status := domain.IndexStatus{
		Built:         true,
		ChunkCount:    42,
		DocumentCount: 3,
		Mode:          domain.ModeHybrid,
		Stats: domain.IndexStats{
			Documents: 3,
			Pages:     120,
			Chunks:    42,
			Words:     8400,
			BuiltAt:   now,
		},
	}
	retrieval := &stubRetrievalService{
		hits: []domain.Hit{
			{
				Chunk: domain.Chunk{
					DocumentID: "miller_1926.pdf",
					Position:   "44",
					Text:       "The circular world map tradition begins far earlier.",
					Meta: domain.DocumentMeta{
						Authors: "Miller",
						Year:    "1926",
					},
				},
				Score:        0.87,
				LexicalScore: 0.91,
			},
		},
		status: status,
		receipt: domain.RebuildReceipt{
			JobID:    "job-1",
			Started:  now,
			Finished: now.Add(180 * time.Millisecond),
			Status:   status,
		},
	}
	return installTestServices(retrieval, &stubChatService{})
}

func TestEnsureServices_KeepsInstalledStubs(t *testing.T) {
	stub := &stubRetrievalService{}
	cleanup := installTestServices(stub, &stubChatService{})
	defer cleanup()

	err := ensureServices()

	assert.NoError(t, err)
	assert.Same(t, driving.RetrievalService(stub), retrievalService)
}

func TestCloseServices_SafeWhenNothingWired(t *testing.T) {
	assert.NotPanics(t, closeServices)
}

func TestRootCmd_HasGlobalFlags(t *testing.T) {
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
}
