package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warraq-labs/warraq/internal/core/domain"
)

// stubChat replays a fixed event sequence on a closed channel, so
// tests drain deterministically.
type stubChat struct {
	events   []domain.StreamEvent
	err      error
	gotQuery string
}

func (s *stubChat) Stream(_ context.Context, query string) (<-chan domain.StreamEvent, error) {
	s.gotQuery = query
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

type stubRetrieval struct {
	status domain.IndexStatus
}

func (s *stubRetrieval) Status(context.Context) domain.IndexStatus { return s.status }

func (s *stubRetrieval) Search(context.Context, string, int) ([]domain.Hit, error) {
	return nil, nil
}

func (s *stubRetrieval) Rebuild(context.Context) (domain.RebuildReceipt, error) {
	return domain.RebuildReceipt{}, nil
}

func answeredExchange() []domain.StreamEvent {
	return []domain.StreamEvent{
		domain.SourcesEvent([]domain.SourceCitation{
			{Label: "Miller, 1926", Position: "44"},
		}),
		domain.TokenEvent("The circular "),
		domain.TokenEvent("world map."),
		domain.DoneEvent(),
	}
}

// ask submits a query and pumps the update loop until the stream is
// fully drained.
func ask(t *testing.T, app *App, query string) *App {
	t.Helper()

	app.input.SetValue(query)
	model, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app = model.(*App)
	require.NotNil(t, cmd, "submit should start a stream")

	for cmd != nil {
		msg := cmd()
		model, next := app.Update(msg)
		app = model.(*App)
		if _, done := msg.(streamClosed); done {
			break
		}
		if _, refused := msg.(streamRefused); refused {
			break
		}
		cmd = next
	}
	return app
}

func newTestApp(t *testing.T, chat *stubChat) *App {
	t.Helper()
	app, err := NewApp(&Ports{Chat: chat})
	require.NoError(t, err)
	model, _ := app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return model.(*App)
}

func TestNewApp_RequiresChatService(t *testing.T) {
	app, err := NewApp(&Ports{})
	require.Error(t, err)
	assert.Nil(t, app)
	assert.ErrorIs(t, err, ErrMissingChatService)
}

func TestNewApp_NotReadyBeforeFirstResize(t *testing.T) {
	app, err := NewApp(&Ports{Chat: &stubChat{}})
	require.NoError(t, err)
	assert.Equal(t, "Initialising...", app.View())
}

func TestApp_SubmitRunsFullExchange(t *testing.T) {
	chat := &stubChat{events: answeredExchange()}
	app := newTestApp(t, chat)

	app = ask(t, app, "who drew the circular map?")

	assert.Equal(t, "who drew the circular map?", chat.gotQuery)
	require.Len(t, app.turns, 1)
	turn := app.turns[0]
	assert.Equal(t, "The circular world map.", turn.Answer)
	assert.True(t, turn.Done)
	require.Len(t, turn.Sources, 1)
	assert.Equal(t, "Miller, 1926", turn.Sources[0].Label)
	assert.False(t, app.streaming)
	assert.Empty(t, app.input.Value())
}

func TestApp_EmptyQueryIgnored(t *testing.T) {
	app := newTestApp(t, &stubChat{})

	app.input.SetValue("   ")
	model, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app = model.(*App)

	assert.Nil(t, cmd)
	assert.Empty(t, app.turns)
	assert.False(t, app.streaming)
}

func TestApp_EnterWhileStreamingIgnored(t *testing.T) {
	app := newTestApp(t, &stubChat{events: answeredExchange()})
	app.streaming = true

	app.input.SetValue("second question")
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
}

func TestApp_StreamRefusedRecordsError(t *testing.T) {
	chat := &stubChat{err: errors.New("index build failed")}
	app := newTestApp(t, chat)

	app = ask(t, app, "anything")

	require.Len(t, app.turns, 1)
	require.Error(t, app.turns[0].Err)
	assert.False(t, app.streaming)
	assert.Contains(t, app.View(), "index build failed")
}

func TestApp_EscQuitsWhenIdle(t *testing.T) {
	app := newTestApp(t, &stubChat{})

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_EscWhileStreamingInterruptsOnly(t *testing.T) {
	app := newTestApp(t, &stubChat{})
	app.streaming = true
	cancelled := false
	app.cancelStream = func() { cancelled = true }

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.Nil(t, cmd)
	assert.True(t, cancelled)
}

func TestApp_ViewRendersExchange(t *testing.T) {
	app := newTestApp(t, &stubChat{events: answeredExchange()})

	app = ask(t, app, "who drew the circular map?")
	view := app.View()

	assert.Contains(t, view, "You: who drew the circular map?")
	assert.Contains(t, view, "[1] Miller, 1926, p.44")
	assert.Contains(t, view, "The circular world map.")
	assert.Contains(t, view, "[enter] ask")
}

func TestApp_HeaderShowsIndexStatus(t *testing.T) {
	app, err := NewApp(&Ports{
		Chat: &stubChat{},
		Retrieval: &stubRetrieval{status: domain.IndexStatus{
			Built:         true,
			Mode:          domain.ModeHybrid,
			ChunkCount:    1284,
			DocumentCount: 12,
		}},
	})
	require.NoError(t, err)

	model, _ := app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	app = model.(*App)
	model, _ = app.Update(app.loadStatus()())
	app = model.(*App)

	view := app.View()
	assert.Contains(t, view, "Warraq Chat")
	assert.Contains(t, view, "1284 chunks from 12 documents")
}

func TestApp_ScrollClampsToContent(t *testing.T) {
	app := newTestApp(t, &stubChat{events: answeredExchange()})
	app = ask(t, app, "q")

	app.scrollBy(1000)
	assert.Equal(t, len(app.transcriptLines()), app.scrollOffset)

	app.scrollBy(-2000)
	assert.Equal(t, 0, app.scrollOffset)
}

func TestWrap(t *testing.T) {
	t.Run("preserves explicit newlines", func(t *testing.T) {
		lines := wrap("one\ntwo", 80)
		assert.Equal(t, []string{"one", "two"}, lines)
	})

	t.Run("wraps at width", func(t *testing.T) {
		lines := wrap("aa bb cc dd", 5)
		assert.Equal(t, []string{"aa bb", "cc dd"}, lines)
	})

	t.Run("long word gets its own line", func(t *testing.T) {
		lines := wrap("a verylongword b", 6)
		assert.Equal(t, []string{"a", "verylongword", "b"}, lines)
	})

	t.Run("empty input yields nothing", func(t *testing.T) {
		assert.Nil(t, wrap("", 10))
	})
}

func TestSourcesLine(t *testing.T) {
	line := sourcesLine([]domain.SourceCitation{
		{Label: "Miller, 1926", Position: "44"},
		{Label: "Ibn Hawqal", Position: "12"},
	})
	assert.Equal(t, "Sources: [1] Miller, 1926, p.44  [2] Ibn Hawqal, p.12", line)
}
