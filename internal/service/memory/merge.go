package memory

import (
	"sort"
	"strings"
	"time"

	"github.com/sandevgo/recall/internal/core"
)

const (
	recentBasePriority = 1.0
	freshBonus         = 0.5
	freshAge           = 5 * time.Minute
	strongMatchBonus   = 0.3
	strongMatchScore   = 0.8
	importantBonus     = 0.2
	openQuestionBonus  = 0.1
)

var importantKeywords = []string{"important", "remember", "don't forget"}

// Merger ranks recent and semantic items together and keeps the best ones
// in chronological order.
type Merger struct {
	maxItems int
	now      func() time.Time
}

func NewMerger(maxItems int) *Merger {
	return &Merger{
		maxItems: maxItems,
		now:      time.Now,
	}
}

func (m *Merger) Merge(recent, semantic []core.ContextItem) []core.ContextItem {
	return m.mergeAt(m.now(), recent, semantic)
}

func (m *Merger) mergeAt(now time.Time, recent, semantic []core.ContextItem) []core.ContextItem {
	all := make([]core.ContextItem, 0, len(recent)+len(semantic))
	all = append(all, recent...)
	all = append(all, semantic...)

	for i := range all {
		all[i].Priority = priority(all[i], now)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Priority > all[j].Priority
	})

	if len(all) > m.maxItems {
		all = all[:m.maxItems]
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.Before(all[j].Timestamp)
	})

	return all
}

func priority(item core.ContextItem, now time.Time) float64 {
	var p float64

	switch item.Kind {
	case core.KindRecent:
		p = recentBasePriority
		if now.Sub(item.Timestamp) < freshAge {
			p += freshBonus
		}
	case core.KindSemantic:
		p = item.Similarity()
		if p > strongMatchScore {
			p += strongMatchBonus
		}
	}

	for _, msg := range item.Messages {
		content := strings.ToLower(msg.Content)
		for _, kw := range importantKeywords {
			if strings.Contains(content, kw) {
				p += importantBonus
				break
			}
		}
		if msg.Role == core.RoleUser && strings.HasSuffix(content, "?") {
			p += openQuestionBonus
		}
	}

	return p
}
