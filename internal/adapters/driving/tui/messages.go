package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/warraq-labs/warraq/internal/core/domain"
)

// statusLoaded carries the index status for the header line.
type statusLoaded struct {
	Status domain.IndexStatus
}

// streamStarted carries the event channel of a freshly opened answer
// stream.
type streamStarted struct {
	Events <-chan domain.StreamEvent
}

// streamRefused signals that the stream never started.
type streamRefused struct {
	Err error
}

// eventReceived carries one event off the answer stream.
type eventReceived struct {
	Event domain.StreamEvent
}

// streamClosed signals that the answer stream channel was closed.
type streamClosed struct{}

// waitForEvent reads the next answer event. The update loop re-issues
// it after every event until the channel closes, which keeps exactly
// one reader on the stream.
func waitForEvent(events <-chan domain.StreamEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamClosed{}
		}
		return eventReceived{Event: ev}
	}
}
