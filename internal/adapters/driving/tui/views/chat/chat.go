// Package chat provides the conversation view for the TUI.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/paperchat/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/paperchat/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/paperchat/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/paperchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/paperchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
)

// Rows taken by everything except the transcript.
const chromeHeight = 6

// entry is one rendered line of the conversation.
type entry struct {
	role   domain.Role
	text   string
	result *domain.AnswerResult
	failed bool
}

// View is the conversation view. The transcript lives only in memory and
// is gone when the program exits.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.PromptInput
	viewport  viewport.Model
	spinner   spinner.Model
	statusbar *status.Bar

	chat driving.ChatService
	ctx  context.Context

	transcript []domain.ChatMessage
	entries    []entry
	pending    bool
	err        error

	width  int
	height int
	ready  bool
}

// NewView creates a chat view backed by the given service.
func NewView(s *styles.Styles, chat driving.ChatService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	km := keymap.DefaultKeyMap()

	return &View{
		styles:    s,
		keymap:    km,
		input:     input.NewPromptInput(s, "You: ", "Ask about a paper, or ask me to fetch some..."),
		viewport:  viewport.New(80, 24-chromeHeight),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		statusbar: status.NewBar(s, km.ChatHelp()),
		chat:      chat,
		ctx:       context.Background(),
		width:     80,
		height:    24,
	}
}

// WithContext sets the context used for chat turns.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init starts the cursor blinking.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.TurnCompleted:
		v.finishTurn(msg)
		return v, nil

	case spinner.TickMsg:
		if !v.pending {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		v.statusbar.SetMessage(v.spinner.View() + " Thinking...")
		return v, cmd

	case tea.KeyMsg:
		return v.handleKey(msg)
	}

	return v, nil
}

func (v *View) handleKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, v.keymap.Send):
		return v, v.send()

	case keymap.Matches(k, v.keymap.ScrollUp), keymap.Matches(k, v.keymap.ScrollDown):
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return v, cmd

	case keymap.Matches(k, v.keymap.Clear):
		if v.pending {
			return v, nil
		}
		v.Reset()
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// send appends the composed message and starts a turn.
func (v *View) send() tea.Cmd {
	text := strings.TrimSpace(v.input.Value())
	if v.pending || text == "" {
		return nil
	}

	v.transcript = append(v.transcript, domain.ChatMessage{Role: domain.RoleUser, Content: text})
	v.entries = append(v.entries, entry{role: domain.RoleUser, text: text})
	v.input.Reset()
	v.pending = true
	v.err = nil
	v.statusbar.SetState(status.StateThinking)
	v.statusbar.SetMessage("")
	v.refresh()

	transcript := make([]domain.ChatMessage, len(v.transcript))
	copy(transcript, v.transcript)

	return tea.Batch(v.spinner.Tick, v.respond(transcript))
}

// respond runs one turn off the UI goroutine.
func (v *View) respond(transcript []domain.ChatMessage) tea.Cmd {
	return func() tea.Msg {
		result, trace, err := v.chat.RespondWithTrace(v.ctx, transcript)
		return messages.TurnCompleted{Result: result, Trace: trace, Err: err}
	}
}

func (v *View) finishTurn(msg messages.TurnCompleted) {
	v.pending = false

	if msg.Err != nil {
		// Drop the unanswered message so the next turn still ends with a user message.
		if n := len(v.transcript); n > 0 && v.transcript[n-1].Role == domain.RoleUser {
			v.transcript = v.transcript[:n-1]
		}
		v.err = msg.Err
		v.entries = append(v.entries, entry{role: domain.RoleAssistant, text: msg.Err.Error(), failed: true})
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		v.refresh()
		return
	}

	v.transcript = append(v.transcript, domain.ChatMessage{Role: domain.RoleAssistant, Content: msg.Result.Answer})
	v.entries = append(v.entries, entry{role: domain.RoleAssistant, text: msg.Result.Answer, result: msg.Result})
	v.statusbar.SetState(status.StateReady)
	v.statusbar.SetMessage(describeTurn(msg.Trace))
	v.statusbar.SetTurns(len(v.transcript) / 2)
	v.refresh()
}

// describeTurn summarises a trace for the status bar.
func describeTurn(trace *domain.TurnTrace) string {
	if trace == nil {
		return ""
	}
	parts := []string{string(trace.Route)}
	if trace.Decision != nil && trace.Decision.Fetch {
		parts = append(parts, fmt.Sprintf("fetched %d papers", len(trace.Papers)))
	}
	return strings.Join(parts, ", ")
}

// refresh re-renders the transcript into the viewport.
func (v *View) refresh() {
	v.viewport.SetContent(v.renderTranscript())
	v.viewport.GotoBottom()
}

func (v *View) renderTranscript() string {
	if len(v.entries) == 0 {
		return v.styles.Muted.Render("Ask a question about your papers. Ask me to fetch papers to grow the collection.")
	}

	wrap := lipgloss.NewStyle().Width(max(v.width-4, 20))
	var b strings.Builder
	for i, e := range v.entries {
		if i > 0 {
			b.WriteString("\n")
		}
		switch {
		case e.role == domain.RoleUser:
			b.WriteString(v.styles.UserLabel.Render("You"))
			b.WriteString("\n")
			b.WriteString(wrap.Render(e.text))
		case e.failed:
			b.WriteString(v.styles.Error.Render("Error"))
			b.WriteString("\n")
			b.WriteString(wrap.Render(e.text))
		default:
			b.WriteString(v.styles.AssistantLabel.Render("paperchat"))
			b.WriteString("\n")
			b.WriteString(wrap.Render(e.text))
			if e.result != nil && len(e.result.Sources) > 0 {
				b.WriteString("\n")
				b.WriteString(v.styles.Citation.Render("sources: " + strings.Join(e.result.Sources, ", ")))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// View renders the chat view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("paperchat"))
	b.WriteString("\n\n")
	b.WriteString(v.viewport.View())
	b.WriteString("\n")
	b.WriteString(v.input.View())
	b.WriteString("\n")
	b.WriteString(v.statusbar.View())
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.viewport.Width = width
	v.viewport.Height = max(height-chromeHeight, 3)
	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.refresh()
}

// Reset starts a new conversation.
func (v *View) Reset() {
	v.transcript = nil
	v.entries = nil
	v.err = nil
	v.input.Reset()
	v.statusbar.Clear()
	v.refresh()
}

// Transcript returns the messages exchanged so far.
func (v *View) Transcript() []domain.ChatMessage {
	return v.transcript
}

// Pending reports whether a turn is in flight.
func (v *View) Pending() bool {
	return v.pending
}

// Err returns the error from the last turn, if any.
func (v *View) Err() error {
	return v.err
}
