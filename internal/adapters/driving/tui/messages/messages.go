// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/paperchat/internal/core/domain"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewChat is the conversation view.
	ViewChat
	// ViewSettings is the settings view.
	ViewSettings
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewChat:
		return "chat"
	case ViewSettings:
		return "settings"
	default:
		return "unknown"
	}
}

// TurnCompleted carries the outcome of one chat turn.
type TurnCompleted struct {
	Result *domain.AnswerResult
	Trace  *domain.TurnTrace
	Err    error
}

// SettingsLoaded carries the rendered settings values.
type SettingsLoaded struct {
	Keys   []string
	Values map[string]string
	Err    error
}

// SettingSaved signals a single key was written.
type SettingSaved struct {
	Key string
	Err error
}
