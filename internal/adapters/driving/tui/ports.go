// Package tui provides the interactive terminal chat client.
// It is a driving adapter over the chat and retrieval services,
// built on the Elm architecture via Bubbletea.
package tui

import (
	"github.com/warraq-labs/warraq/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces the chat TUI needs.
type Ports struct {
	// Chat streams answers. Required.
	Chat driving.ChatService

	// Retrieval reports index state for the header line. Optional;
	// the header omits the status when nil.
	Retrieval driving.RetrievalService
}

// Validate ensures the required ports are set.
func (p *Ports) Validate() error {
	if p.Chat == nil {
		return ErrMissingChatService
	}
	return nil
}
