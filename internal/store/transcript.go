package store

import (
	"fmt"
	"io"
	"strings"

	"github.com/gipl/gipl-assistant/internal"
)

// Label is the speaker name shown for a message.
func Label(role internal.Role, assistantName string) string {
	if role == internal.RoleUser {
		return "User"
	}
	return assistantName
}

// WriteTranscript renders messages in insertion order as labelled blocks
// separated by blank lines.
func WriteTranscript(w io.Writer, assistantName string, messages []internal.Message) error {
	for i, m := range messages {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s:\n%s\n", Label(m.Role, assistantName), m.Content); err != nil {
			return err
		}
	}
	return nil
}

func Transcript(assistantName string, messages []internal.Message) string {
	var b strings.Builder
	_ = WriteTranscript(&b, assistantName, messages)
	return b.String()
}
