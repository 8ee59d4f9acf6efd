package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_AreDistinct(t *testing.T) {
	assert.NotEqual(t, ErrMissingChatService.Error(), ErrMissingSettingsService.Error())
}

func TestErrMissingChatService_Message(t *testing.T) {
	assert.Contains(t, ErrMissingChatService.Error(), "chat service")
}

func TestErrMissingSettingsService_Message(t *testing.T) {
	assert.Contains(t, ErrMissingSettingsService.Error(), "settings service")
}
