package telegram

import (
	"html"
	"strings"
	"time"
	"unicode"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sandevgo/recall/internal/core"
)

const emptyHistory = "No conversation history yet."

var (
	mdExtensions = parser.CommonExtensions | parser.NoEmptyLineBeforeBlock
	htmlFlags    = mdhtml.CommonFlags | mdhtml.HrefTargetBlank
	tgPolicy     = newTelegramPolicy()
)

// newTelegramPolicy keeps only the tags Telegram accepts in HTML mode,
// see https://core.telegram.org/bots/api#html-style
func newTelegramPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "strong", "i", "em", "u", "ins", "s", "strike", "del", "code", "pre", "blockquote")
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("class").OnElements("code")
	return p
}

// renderReply turns a model answer written in Markdown into Telegram HTML.
func renderReply(md string) string {
	p := parser.NewWithExtensions(mdExtensions)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: htmlFlags})
	unsafeHTML := markdown.Render(p.Parse([]byte(md)), renderer)

	return strings.TrimSpace(string(tgPolicy.SanitizeBytes(unsafeHTML)))
}

// renderHistory lists stored messages in the order given, oldest first as
// returned by the store.
func renderHistory(messages []core.TurnMessage) string {
	if len(messages) == 0 {
		return emptyHistory
	}

	blocks := make([]string, 0, len(messages))
	for _, m := range messages {
		var sb strings.Builder
		sb.WriteString("<b>")
		sb.WriteString(html.EscapeString(roleLabel(m.Role)))
		sb.WriteString("</b>")
		if ts, err := time.Parse(time.RFC3339, m.Timestamp); err == nil {
			sb.WriteString(" <i>")
			sb.WriteString(ts.Format("Jan 2 15:04"))
			sb.WriteString("</i>")
		}
		sb.WriteString("\n")
		sb.WriteString(html.EscapeString(m.Content))

		blocks = append(blocks, sb.String())
	}
	return strings.Join(blocks, "\n\n")
}

func roleLabel(role string) string {
	if role == "" {
		return "Unknown"
	}
	r := []rune(role)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
