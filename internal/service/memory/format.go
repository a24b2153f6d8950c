package memory

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/sandevgo/recall/internal/core"
)

const (
	contextHeader  = "Previous conversation context:\n"
	timeFormat     = "15:04"
	currentMessage = "\n\nCurrent message: "
)

// Format renders items as a prompt block that ends with the current message.
// It returns an empty string when there is nothing to show.
func Format(message string, items []core.ContextItem) string {
	if len(items) == 0 {
		return ""
	}

	parts := []string{contextHeader}
	for _, item := range items {
		ts := item.Timestamp.Format(timeFormat)
		if item.Kind == core.KindSemantic {
			parts = append(parts, fmt.Sprintf("\n[Relevant - %s, similarity: %.2f]", ts, item.Similarity()))
		} else {
			parts = append(parts, fmt.Sprintf("\n[Recent - %s]", ts))
		}

		for _, msg := range item.Messages {
			parts = append(parts, capitalize(msg.Role)+": "+msg.Content)
		}
	}
	parts = append(parts, currentMessage+message)

	return strings.Join(parts, "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
