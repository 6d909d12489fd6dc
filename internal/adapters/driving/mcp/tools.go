package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/warraq-labs/warraq/internal/core/services"
)

// SearchInput is the input schema for the search_corpus tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the question or keywords to search the corpus for"`
	K     int    `json:"k,omitempty" jsonschema:"maximum number of passages to return (default 5)"`
}

// SearchOutput is the output schema for the search_corpus tool.
type SearchOutput struct {
	Mode    string      `json:"mode"`
	Results []SearchHit `json:"results"`
	Count   int         `json:"count"`
}

// SearchHit is one retrieved passage.
type SearchHit struct {
	Source     string  `json:"source"`
	DocumentID string  `json:"document_id"`
	Position   string  `json:"position"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

// StatusInput is the (empty) input schema for the corpus_status tool.
type StatusInput struct{}

// StatusOutput is the output schema for the corpus_status tool.
type StatusOutput struct {
	Built          bool   `json:"built"`
	Mode           string `json:"mode"`
	Documents      int    `json:"documents"`
	Chunks         int    `json:"chunks"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_corpus",
		Description: "Search the indexed text corpus and return the most relevant passages with source attributions",
	}, s.handleSearchCorpus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "corpus_status",
		Description: "Report what the corpus index holds and which scoring mode is active",
	}, s.handleCorpusStatus)
}

// handleSearchCorpus handles the search_corpus tool invocation.
func (s *Server) handleSearchCorpus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	hits, err := s.ports.Retrieval.Search(ctx, input.Query, input.K)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Mode:    string(s.ports.Retrieval.Status(ctx).Mode),
		Results: make([]SearchHit, len(hits)),
		Count:   len(hits),
	}

	for i, h := range hits {
		output.Results[i] = SearchHit{
			Source:     services.Label(h.Chunk),
			DocumentID: h.DocumentID,
			Position:   h.Position,
			Score:      h.Score,
			Text:       h.Text,
		}
	}

	return nil, output, nil
}

// handleCorpusStatus handles the corpus_status tool invocation.
func (s *Server) handleCorpusStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	st := s.ports.Retrieval.Status(ctx)

	return nil, StatusOutput{
		Built:          st.Built,
		Mode:           string(st.Mode),
		Documents:      st.DocumentCount,
		Chunks:         st.ChunkCount,
		EmbeddingModel: st.Stats.EmbeddingModel,
	}, nil
}
