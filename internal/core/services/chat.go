package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/warraq-labs/warraq/internal/core/domain"
	"github.com/warraq-labs/warraq/internal/core/ports/driven"
	"github.com/warraq-labs/warraq/internal/core/ports/driving"
	"github.com/warraq-labs/warraq/internal/logger"
)

// chatEventBuffer sizes the event channel so a briefly slow consumer
// does not stall the generator.
const chatEventBuffer = 4

// systemPrompt is the fixed generator instruction. The citation rules
// here must stay in step with the bracketed source tags FormatContext
// produces.
const systemPrompt = `You are a research assistant for a corpus of scholarship on historical Islamic geography and cartography.

Answer using ONLY the corpus excerpts provided in the user message. Each excerpt opens with a bracketed source tag such as [Miller, 1926, p.44]. When you draw on an excerpt, cite it with its exact bracketed tag. Never cite raw alphanumeric document identifiers.

If the excerpts do not contain enough information to answer the question, say so plainly rather than speculating.`

// configErrorMessage is streamed as the whole answer when no generator
// backend is configured. Retrieval still ran, so the sources event
// preceding it is real.
const configErrorMessage = "No answer generator is configured. Set GEMINI_API_KEY, OPENAI_API_KEY or ANTHROPIC_API_KEY (directly or in a .env file) and restart the server."

// ChatService coordinates retrieval-augmented answer streams: retrieve
// first, announce sources, then relay generator tokens.
type ChatService struct {
	retrieval       driving.RetrievalService
	generator       driven.Generator
	maxContextWords int
}

var _ driving.ChatService = (*ChatService)(nil)

// NewChatService creates a chat service. generator may be nil; streams
// then carry the configuration guidance message instead of an answer.
// maxContextWords <= 0 selects the default context budget.
func NewChatService(retrieval driving.RetrievalService, generator driven.Generator, maxContextWords int) *ChatService {
	if maxContextWords <= 0 {
		maxContextWords = DefaultMaxContextWords
	}
	return &ChatService{
		retrieval:       retrieval,
		generator:       generator,
		maxContextWords: maxContextWords,
	}
}

// Stream validates the query, runs retrieval synchronously and starts
// the event stream. Retrieval failures surface as the error return;
// once a channel is handed out, every subsequent failure is reported
// in-stream so the consumer always sees a done event.
func (s *ChatService) Stream(ctx context.Context, query string) (<-chan domain.StreamEvent, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}

	hits, err := s.retrieval.Search(ctx, query, 0)
	if err != nil {
		return nil, err
	}

	events := make(chan domain.StreamEvent, chatEventBuffer)
	go s.run(ctx, query, hits, events)
	return events, nil
}

// run produces the event sequence: sources, tokens, done. Exactly one
// done event terminates every path except consumer abandonment, where
// closing the channel is the only signal left to give.
func (s *ChatService) run(ctx context.Context, query string, hits []domain.Hit, events chan<- domain.StreamEvent) {
	defer close(events)

	streamID := uuid.NewString()
	logger.Section("Answer Stream")
	logger.Debug("Stream %s: %d sources", streamID, len(hits))

	if !s.send(ctx, events, domain.SourcesEvent(Citations(hits))) {
		return
	}

	if s.generator == nil {
		if s.send(ctx, events, domain.TokenEvent(configErrorMessage)) {
			s.send(ctx, events, domain.DoneEvent())
		}
		return
	}

	excerpts := FormatContext(hits, s.maxContextWords)
	if excerpts == "" {
		excerpts = "(no relevant excerpts were found for this question)"
	}

	tokens, errs, err := s.generator.Stream(ctx, systemPrompt, userMessage(query, excerpts))
	if err != nil {
		logger.Warn("Stream %s: generator refused request: %v", streamID, err)
		if s.send(ctx, events, domain.TokenEvent(fmt.Sprintf("\n[generation error: %v]", err))) {
			s.send(ctx, events, domain.DoneEvent())
		}
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("Stream %s: generation failed mid-stream: %v", streamID, err)
			if s.send(ctx, events, domain.TokenEvent(fmt.Sprintf("\n[generation error: %v]", err))) {
				s.send(ctx, events, domain.DoneEvent())
			}
			return

		case tok, ok := <-tokens:
			if !ok {
				s.send(ctx, events, domain.DoneEvent())
				return
			}
			if !s.send(ctx, events, domain.TokenEvent(tok)) {
				return
			}
		}
	}
}

// send delivers one event unless the consumer has gone away.
func (s *ChatService) send(ctx context.Context, events chan<- domain.StreamEvent, ev domain.StreamEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// userMessage assembles the generator's user turn from the excerpt
// context and the question.
func userMessage(query, excerpts string) string {
	return "Corpus excerpts:\n\n" + excerpts + "\n\n---\n\nQuestion: " + query
}
