package chat

import (
	"regexp"
	"strings"
)

// Intent tells whether a group message is addressed to the bot by name.
type Intent struct {
	pattern *regexp.Regexp
}

func NewIntent(names []string) *Intent {
	var quoted []string
	for _, name := range names {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		// "sena ai" also matches "sena_ai" and "senaai"
		parts := strings.Fields(name)
		for i := range parts {
			parts[i] = regexp.QuoteMeta(parts[i])
		}
		quoted = append(quoted, strings.Join(parts, `[\s_]?`))
	}

	if len(quoted) == 0 {
		return &Intent{}
	}
	return &Intent{
		pattern: regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`),
	}
}

func (i *Intent) Matches(text string) bool {
	if i == nil || i.pattern == nil {
		return false
	}
	return i.pattern.MatchString(text)
}
