// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/paperchat/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/paperchat/internal/adapters/driving/tui/styles"
)

// State represents the current application state for display.
type State string

const (
	StateReady    State = "ready"
	StateThinking State = "thinking"
	StateError    State = "error"
)

// Bar displays turn status and keybinding hints.
type Bar struct {
	styles   *styles.Styles
	bindings []key.Binding
	state    State
	message  string
	turns    int
	width    int
}

// NewBar creates a status bar showing the given key hints.
func NewBar(s *styles.Styles, bindings []key.Binding) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if bindings == nil {
		bindings = keymap.DefaultKeyMap().ChatHelp()
	}

	return &Bar{
		styles:   s,
		bindings: bindings,
		state:    StateReady,
		width:    80,
	}
}

// View renders the status bar.
func (b *Bar) View() string {
	left := b.renderLeft()
	right := b.renderRight()

	padding := max(b.width-lipgloss.Width(left)-lipgloss.Width(right), 1)

	return b.styles.StatusBar.Width(b.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (b *Bar) renderLeft() string {
	switch b.state {
	case StateThinking:
		if b.message != "" {
			return b.styles.Muted.Render(b.message)
		}
		return b.styles.Muted.Render("Thinking...")
	case StateError:
		if b.message != "" {
			return b.styles.Error.Render(fmt.Sprintf("Error: %s", b.message))
		}
		return b.styles.Error.Render("Error")
	case StateReady:
	}

	text := "Ready"
	if b.message != "" {
		text = b.message
	}
	if b.turns > 0 {
		text = fmt.Sprintf("%s | %d turns", text, b.turns)
	}
	return b.styles.Muted.Render(text)
}

func (b *Bar) renderRight() string {
	hints := make([]string, 0, len(b.bindings))
	for _, binding := range b.bindings {
		h := binding.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return b.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (b *Bar) SetState(state State) {
	b.state = state
}

// State returns the current state.
func (b *Bar) State() State {
	return b.state
}

// SetMessage sets the text shown on the left.
func (b *Bar) SetMessage(message string) {
	b.message = message
}

// Message returns the current message.
func (b *Bar) Message() string {
	return b.message
}

// SetTurns sets the number of completed turns.
func (b *Bar) SetTurns(n int) {
	b.turns = n
}

// SetWidth sets the status bar width.
func (b *Bar) SetWidth(width int) {
	b.width = width
}

// Clear resets the status bar to default state.
func (b *Bar) Clear() {
	b.state = StateReady
	b.message = ""
	b.turns = 0
}
