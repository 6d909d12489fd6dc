package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// uriScheme is the custom URI scheme for warraq resources.
const uriScheme = "warraq://"

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource mirroring the corpus_status tool, for clients
	// that pull context from resources rather than tool calls.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "status",
		Name:        "corpus-status",
		Description: "Current state of the corpus index",
		MIMEType:    "application/json",
	}, s.handleStatusResource)
}

// handleStatusResource returns the index status as JSON.
func (s *Server) handleStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	st := s.ports.Retrieval.Status(ctx)

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling status: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
