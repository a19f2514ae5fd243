package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gipl/gipl-assistant/internal"
)

func TestTranscript(t *testing.T) {
	msgs := []internal.Message{
		{Role: internal.RoleUser, Content: "Hello"},
		{Role: internal.RoleAssistant, Content: "Hello! I am GIPL Assistant. How can I assist you today?"},
	}

	want := "User:\nHello\n\nGIPL Assistant:\nHello! I am GIPL Assistant. How can I assist you today?\n"
	assert.Equal(t, want, Transcript("GIPL Assistant", msgs))
}

func TestTranscript_Empty(t *testing.T) {
	assert.Equal(t, "", Transcript("GIPL Assistant", nil))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "User", Label(internal.RoleUser, "Bot"))
	assert.Equal(t, "Bot", Label(internal.RoleAssistant, "Bot"))
}
