package domain

import (
	"fmt"
	"strings"
)

// Role identifies the author of a chat message.
type Role string

// Transcript roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid returns true if the role is recognised.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ChatMessage is a single entry in a conversation transcript.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SplitTranscript separates the active query from the prior history.
// The last message must be a non-empty user message; it is excluded from
// the returned history.
func SplitTranscript(transcript []ChatMessage) (string, []ChatMessage, error) {
	if len(transcript) == 0 {
		return "", nil, fmt.Errorf("%w: empty transcript", ErrInvalidInput)
	}

	for i, msg := range transcript {
		if !msg.Role.IsValid() {
			return "", nil, fmt.Errorf("%w: message %d has unknown role %q", ErrInvalidInput, i, msg.Role)
		}
	}

	last := transcript[len(transcript)-1]
	if last.Role != RoleUser {
		return "", nil, fmt.Errorf("%w: last message must come from the user", ErrInvalidInput)
	}

	query := strings.TrimSpace(last.Content)
	if query == "" {
		return "", nil, fmt.Errorf("%w: empty query", ErrInvalidInput)
	}

	history := make([]ChatMessage, len(transcript)-1)
	copy(history, transcript[:len(transcript)-1])

	return query, history, nil
}

// FormatHistory renders messages as "role: content" lines for prompts.
func FormatHistory(history []ChatMessage) string {
	if len(history) == 0 {
		return "(no prior messages)"
	}

	var b strings.Builder
	for _, msg := range history {
		b.WriteString(string(msg.Role))
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(msg.Content))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
