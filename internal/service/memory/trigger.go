package memory

import (
	"strings"

	"github.com/sandevgo/recall/internal/core"
)

var (
	backwardCues = []string{
		"remember", "earlier", "before", "previously",
		"last time", "you said", "we talked", "mentioned",
	}
	referencePronouns = map[string]struct{}{
		"it": {}, "that": {}, "this": {}, "them": {}, "those": {},
	}
	continuationWords = []string{"also", "additionally", "furthermore", "besides"}
)

// Reasons reported by semanticTrigger, also used as metric labels.
const (
	triggerBackwardCue  = "backward_cue"
	triggerQuestion     = "question"
	triggerPronoun      = "pronoun"
	triggerContinuation = "continuation"
)

// ShouldFetchSemantic decides whether the message refers to something older
// than the recent window.
func ShouldFetchSemantic(message string, recent []core.ContextItem) bool {
	_, ok := semanticTrigger(message, recent)
	return ok
}

func semanticTrigger(message string, recent []core.ContextItem) (string, bool) {
	lower := strings.ToLower(message)
	trimmed := strings.TrimSpace(lower)

	for _, cue := range backwardCues {
		if strings.Contains(lower, cue) {
			return triggerBackwardCue, true
		}
	}

	// a question with little recent context probably needs older history
	if strings.HasSuffix(trimmed, "?") && len(recent) < 3 {
		return triggerQuestion, true
	}

	if len(recent) < 2 {
		for _, word := range strings.Fields(lower) {
			if _, ok := referencePronouns[word]; ok {
				return triggerPronoun, true
			}
		}
	}

	for _, word := range continuationWords {
		if strings.HasPrefix(trimmed, word) {
			return triggerContinuation, true
		}
	}

	return "", false
}
