package mcp

import (
	"context"

	"github.com/warraq-labs/warraq/internal/core/domain"
)

// mockRetrievalService is a mock implementation of
// driving.RetrievalService.
type mockRetrievalService struct {
	hits   []domain.Hit
	status domain.IndexStatus
	err    error

	gotQuery string
	gotK     int
}

func (m *mockRetrievalService) Status(_ context.Context) domain.IndexStatus {
	return m.status
}

func (m *mockRetrievalService) Search(_ context.Context, query string, k int) ([]domain.Hit, error) {
	m.gotQuery = query
	m.gotK = k
	return m.hits, m.err
}

func (m *mockRetrievalService) Rebuild(_ context.Context) (domain.RebuildReceipt, error) {
	return domain.RebuildReceipt{Status: m.status}, m.err
}
