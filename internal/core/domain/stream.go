package domain

import "encoding/json"

// Event types carried on the answer stream.
const (
	EventSources = "sources"
	EventToken   = "token"
	EventDone    = "done"
)

// StreamEvent is one event on the answer stream. A stream is always
// the sequence: one sources event, zero or more token events, exactly
// one done event. Nothing follows done.
type StreamEvent struct {
	// Type is one of EventSources, EventToken, EventDone.
	Type string `json:"type"`

	// Sources is set on sources events only.
	Sources []SourceCitation `json:"sources,omitempty"`

	// Text is set on token events only.
	Text string `json:"text,omitempty"`
}

// SourcesEvent builds the stream's opening event.
func SourcesEvent(sources []SourceCitation) StreamEvent {
	return StreamEvent{Type: EventSources, Sources: sources}
}

// TokenEvent wraps one generated text fragment.
func TokenEvent(text string) StreamEvent {
	return StreamEvent{Type: EventToken, Text: text}
}

// DoneEvent terminates the stream.
func DoneEvent() StreamEvent {
	return StreamEvent{Type: EventDone}
}

// MarshalJSON emits only the fields meaningful for the event type.
// A sources event always carries a sources array, even when empty,
// so clients can render the panel without a nil check.
func (e StreamEvent) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventSources:
		sources := e.Sources
		if sources == nil {
			sources = []SourceCitation{}
		}
		return json.Marshal(struct {
			Type    string           `json:"type"`
			Sources []SourceCitation `json:"sources"`
		}{e.Type, sources})
	case EventToken:
		return json.Marshal(struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{e.Type, e.Text})
	default:
		return json.Marshal(struct {
			Type string `json:"type"`
		}{e.Type})
	}
}
