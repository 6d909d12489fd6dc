package mcp

import (
	"github.com/warraq-labs/warraq/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces the MCP server needs.
type Ports struct {
	// Retrieval provides search and index status.
	Retrieval driving.RetrievalService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
