package chat

import (
	"os"
	"strings"

	"github.com/sandevgo/recall/internal/core"
)

const defaultSystemPrompt = `You are a helpful assistant in a group chat.
Keep answers short and talk like a friend, not a customer service agent.`

// SysPrompt builds the system message from the runtime SYSTEM.md file.
// The file is read on every call so edits apply without a restart.
type SysPrompt struct {
	path string
}

func NewSysPrompt(path string) *SysPrompt {
	return &SysPrompt{
		path: path,
	}
}

// Build returns the system and user messages for one request. The retrieved
// context, when present, is appended to the system prompt.
func (p *SysPrompt) Build(contextBlock, userMessage string) []core.Message {
	system := defaultSystemPrompt
	if content, err := os.ReadFile(p.path); err == nil && strings.TrimSpace(string(content)) != "" {
		system = string(content)
	}

	if contextBlock != "" {
		system += "\n\n" + contextBlock
	}

	return []core.Message{
		{Role: core.RoleSystem, Content: system},
		{Role: core.RoleUser, Content: userMessage},
	}
}
