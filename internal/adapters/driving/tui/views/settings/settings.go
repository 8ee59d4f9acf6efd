// Package settings provides the settings view for the TUI.
package settings

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/paperchat/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/paperchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/paperchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
)

// View lists every configuration key and edits one at a time.
type View struct {
	styles          *styles.Styles
	keymap          *keymap.KeyMap
	settingsService driving.SettingsService

	keys   []string
	values map[string]string
	err    error
	notice string

	selected int
	editing  bool
	editor   textinput.Model

	width  int
	height int
	ready  bool
}

// NewView creates a new settings view.
func NewView(s *styles.Styles, settingsService driving.SettingsService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	editor := textinput.New()
	editor.CharLimit = 512

	return &View{
		styles:          s,
		keymap:          keymap.DefaultKeyMap(),
		settingsService: settingsService,
		editor:          editor,
	}
}

// Init loads the settings.
func (v *View) Init() tea.Cmd {
	return v.loadSettings()
}

// loadSettings returns a command that reads keys and effective values.
func (v *View) loadSettings() tea.Cmd {
	return func() tea.Msg {
		if v.settingsService == nil {
			return messages.SettingsLoaded{Err: fmt.Errorf("settings service not available")}
		}
		_, err := v.settingsService.Get()
		return messages.SettingsLoaded{
			Keys:   v.settingsService.Keys(),
			Values: v.settingsService.Values(),
			Err:    err,
		}
	}
}

// save returns a command that writes one key.
func (v *View) save(key, value string) tea.Cmd {
	return func() tea.Msg {
		return messages.SettingSaved{Key: key, Err: v.settingsService.Set(key, value)}
	}
}

// Update handles messages for the settings view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.SettingsLoaded:
		v.keys = msg.Keys
		v.values = msg.Values
		v.err = msg.Err
		v.selected = min(v.selected, max(len(v.keys)-1, 0))
		return v, nil

	case messages.SettingSaved:
		if msg.Err != nil {
			v.err = msg.Err
			v.notice = ""
			return v, nil
		}
		v.err = nil
		v.notice = "Saved " + msg.Key
		return v, v.loadSettings()

	case tea.KeyMsg:
		if v.editing {
			return v.handleEditKeys(msg)
		}
		return v.handleListKeys(msg)
	}

	return v, nil
}

func (v *View) handleListKeys(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch k := msg.String(); {
	case keymap.Matches(k, v.keymap.Up):
		if v.selected > 0 {
			v.selected--
		}
	case keymap.Matches(k, v.keymap.Down):
		if v.selected < len(v.keys)-1 {
			v.selected++
		}
	case keymap.Matches(k, v.keymap.Select):
		if len(v.keys) == 0 || v.settingsService == nil {
			return v, nil
		}
		v.editing = true
		v.notice = ""
		v.editor.Reset()
		if !isSecret(v.keys[v.selected]) {
			v.editor.SetValue(v.values[v.keys[v.selected]])
			v.editor.CursorEnd()
		}
		return v, v.editor.Focus()
	}
	return v, nil
}

func (v *View) handleEditKeys(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch k := msg.String(); {
	case keymap.Matches(k, v.keymap.Back):
		v.editing = false
		v.editor.Blur()
		return v, nil
	case keymap.Matches(k, v.keymap.Select):
		v.editing = false
		v.editor.Blur()
		return v, v.save(v.keys[v.selected], v.editor.Value())
	}

	var cmd tea.Cmd
	v.editor, cmd = v.editor.Update(msg)
	return v, cmd
}

// isSecret reports whether the key holds a credential that is shown masked.
func isSecret(key string) bool {
	return strings.HasSuffix(key, ".api_key")
}

// View renders the settings list.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("Settings"))
	b.WriteString("\n\n")

	if len(v.keys) == 0 && v.err == nil {
		b.WriteString(v.styles.Muted.Render("Loading..."))
		b.WriteString("\n")
	}

	width := 0
	for _, k := range v.keys {
		width = max(width, len(k))
	}

	for i, k := range v.keys {
		line := fmt.Sprintf("%-*s  %s", width, k, v.values[k])
		switch {
		case i == v.selected && v.editing:
			b.WriteString("> " + fmt.Sprintf("%-*s  ", width, k) + v.editor.View())
		case i == v.selected:
			b.WriteString("> " + v.styles.Selected.Render(line))
		default:
			b.WriteString("  " + v.styles.Normal.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n")
	case v.notice != "":
		b.WriteString(v.styles.Success.Render(v.notice))
		b.WriteString("\n")
	}

	if v.editing {
		b.WriteString(v.styles.Help.Render("[Enter] Save  [Esc] Cancel"))
	} else {
		b.WriteString(v.styles.Help.Render("[j/k] Navigate  [Enter] Edit  [Esc] Back"))
	}
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.editor.Width = max(width/2, 20)
}

// Editing reports whether a value is being edited.
func (v *View) Editing() bool {
	return v.editing
}

// Reset leaves edit mode and clears notices.
func (v *View) Reset() {
	v.editing = false
	v.editor.Blur()
	v.notice = ""
	v.err = nil
}
