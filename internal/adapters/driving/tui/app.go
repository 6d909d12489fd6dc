package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/warraq-labs/warraq/internal/core/domain"
)

// chromeLines is the screen estate outside the transcript: header,
// spacing, input box and help line.
const chromeLines = 7

// turn is one question with everything streamed back for it.
type turn struct {
	Question string
	Sources  []domain.SourceCitation
	Answer   string
	Done     bool
	Err      error
}

// App is the chat TUI model. It implements tea.Model.
type App struct {
	ports  *Ports
	styles *Styles

	// ctx is the base context; each answer stream derives its own
	// cancellable child from it.
	ctx          context.Context
	cancelStream context.CancelFunc

	input  textinput.Model
	turns  []turn
	events <-chan domain.StreamEvent

	status    domain.IndexStatus
	hasStatus bool

	// scrollOffset counts lines up from the transcript bottom.
	// Zero sticks to the newest output.
	scrollOffset int

	width     int
	height    int
	ready     bool
	streaming bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates the chat TUI with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	ti := textinput.New()
	ti.Placeholder = "Ask about the corpus..."
	ti.CharLimit = 512
	ti.Width = 60
	ti.Focus()

	return &App{
		ports:  ports,
		styles: DefaultStyles(),
		ctx:    context.Background(),
		input:  ti,
		width:  80,
		height: 24,
	}, nil
}

// WithContext sets the base context for answer streams.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tea.SetWindowTitle("warraq chat"),
		a.loadStatus(),
	)
}

// loadStatus fetches the index status for the header line.
func (a *App) loadStatus() tea.Cmd {
	if a.ports.Retrieval == nil {
		return nil
	}
	return func() tea.Msg {
		return statusLoaded{Status: a.ports.Retrieval.Status(a.ctx)}
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.input.Width = max(20, msg.Width-8)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case statusLoaded:
		a.status = msg.Status
		a.hasStatus = true
		return a, nil

	case streamStarted:
		a.events = msg.Events
		return a, waitForEvent(a.events)

	case streamRefused:
		a.finishStream()
		if cur := a.currentTurn(); cur != nil {
			cur.Err = msg.Err
		}
		return a, nil

	case eventReceived:
		a.applyEvent(msg.Event)
		return a, waitForEvent(a.events)

	case streamClosed:
		a.finishStream()
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// handleKey processes keyboard input.
func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		a.finishStream()
		return a, tea.Quit

	case tea.KeyEsc:
		// First esc interrupts the answer, second one quits.
		if a.streaming {
			if a.cancelStream != nil {
				a.cancelStream()
			}
			return a, nil
		}
		return a, tea.Quit

	case tea.KeyEnter:
		return a, a.submit()

	case tea.KeyUp, tea.KeyPgUp:
		a.scrollBy(1)
		return a, nil

	case tea.KeyDown, tea.KeyPgDown:
		a.scrollBy(-1)
		return a, nil

	default:
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}
}

// submit opens a stream for the typed query.
func (a *App) submit() tea.Cmd {
	if a.streaming {
		return nil
	}
	query := strings.TrimSpace(a.input.Value())
	if query == "" {
		return nil
	}

	a.turns = append(a.turns, turn{Question: query})
	a.input.SetValue("")
	a.streaming = true
	a.scrollOffset = 0

	ctx, cancel := context.WithCancel(a.ctx)
	a.cancelStream = cancel
	return func() tea.Msg {
		events, err := a.ports.Chat.Stream(ctx, query)
		if err != nil {
			return streamRefused{Err: err}
		}
		return streamStarted{Events: events}
	}
}

// applyEvent folds one stream event into the current turn.
func (a *App) applyEvent(ev domain.StreamEvent) {
	cur := a.currentTurn()
	if cur == nil {
		return
	}
	switch ev.Type {
	case domain.EventSources:
		cur.Sources = ev.Sources
	case domain.EventToken:
		cur.Answer += ev.Text
	case domain.EventDone:
		cur.Done = true
	}
}

// finishStream releases the active stream, if any.
func (a *App) finishStream() {
	if a.cancelStream != nil {
		a.cancelStream()
		a.cancelStream = nil
	}
	a.events = nil
	a.streaming = false
}

func (a *App) currentTurn() *turn {
	if len(a.turns) == 0 {
		return nil
	}
	return &a.turns[len(a.turns)-1]
}

// scrollBy moves the transcript window, clamped to its content.
func (a *App) scrollBy(delta int) {
	a.scrollOffset += delta
	if a.scrollOffset < 0 {
		a.scrollOffset = 0
	}
	if total := len(a.transcriptLines()); a.scrollOffset > total {
		a.scrollOffset = total
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(a.headerView())
	b.WriteString("\n\n")
	b.WriteString(a.transcriptView())
	b.WriteString("\n")
	b.WriteString(a.styles.InputField.Render(a.input.View()))
	b.WriteString("\n")
	b.WriteString(a.helpView())
	return b.String()
}

func (a *App) headerView() string {
	title := a.styles.Title.Render("Warraq Chat")
	if !a.hasStatus {
		return title
	}
	detail := fmt.Sprintf("%s, %d chunks from %d documents",
		a.status.Mode, a.status.ChunkCount, a.status.DocumentCount)
	if !a.status.Built {
		detail = string(a.status.Mode) + ", index builds on first question"
	}
	return title + "  " + a.styles.Muted.Render(detail)
}

func (a *App) helpView() string {
	if a.streaming {
		return a.styles.Muted.Render("[esc] interrupt answer  [ctrl+c] quit")
	}
	return a.styles.Muted.Render("[enter] ask  [up/down] scroll  [esc] quit")
}

// transcriptView renders the visible window of the conversation.
func (a *App) transcriptView() string {
	lines := a.transcriptLines()

	avail := a.height - chromeLines
	if avail < 3 {
		avail = 3
	}

	end := len(lines) - a.scrollOffset
	if end > len(lines) {
		end = len(lines)
	}
	start := end - avail
	if start < 0 {
		start = 0
	}
	if end < start {
		end = start
	}

	visible := lines[start:end]
	// Pad so the input box does not jump around while the first
	// answers stream in.
	out := make([]string, 0, avail)
	for i := len(visible); i < avail; i++ {
		out = append(out, "")
	}
	out = append(out, visible...)
	return strings.Join(out, "\n")
}

// transcriptLines renders every turn, wrapped and styled.
func (a *App) transcriptLines() []string {
	width := a.width - 2
	if width < 20 {
		width = 20
	}

	var lines []string
	for i := range a.turns {
		t := &a.turns[i]
		if i > 0 {
			lines = append(lines, "")
		}

		for _, l := range wrap("You: "+t.Question, width) {
			lines = append(lines, a.styles.Question.Render(l))
		}

		if t.Err != nil {
			for _, l := range wrap("error: "+t.Err.Error(), width) {
				lines = append(lines, a.styles.Error.Render(l))
			}
			continue
		}

		if len(t.Sources) > 0 {
			for _, l := range wrap(sourcesLine(t.Sources), width) {
				lines = append(lines, a.styles.Source.Render(l))
			}
		}

		for _, l := range wrap(t.Answer, width) {
			lines = append(lines, a.styles.Answer.Render(l))
		}

		last := i == len(a.turns)-1
		switch {
		case last && a.streaming && !t.Done:
			lines = append(lines, a.styles.Muted.Render("..."))
		case !t.Done && t.Answer != "":
			lines = append(lines, a.styles.Muted.Render("(interrupted)"))
		}
	}
	return lines
}

// sourcesLine formats the citation labels of one answer.
func sourcesLine(sources []domain.SourceCitation) string {
	parts := make([]string, len(sources))
	for i, s := range sources {
		parts[i] = fmt.Sprintf("[%d] %s, p.%s", i+1, s.Label, s.Position)
	}
	return "Sources: " + strings.Join(parts, "  ")
}

// wrap greedily wraps text to width, preserving explicit newlines.
// Words longer than the width get a line of their own.
func wrap(text string, width int) []string {
	if text == "" {
		return nil
	}

	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}

		line := words[0]
		for _, w := range words[1:] {
			if len(line)+1+len(w) > width {
				lines = append(lines, line)
				line = w
				continue
			}
			line += " " + w
		}
		lines = append(lines, line)
	}
	return lines
}

// Run starts the TUI and blocks until the user quits.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
