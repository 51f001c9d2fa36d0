package chat

import (
	"strings"

	"noddy-ai-backend/internal/provider"
)

// NoddyPersona is the fixed system persona for every conversation.
const NoddyPersona = `You are Noddy, a modern, playful, wise, adult-cartoon-persona AI assistant.
Personality traits:
- Playful adult cartoon girl
- Cheerful but wise
- Flirty but respectful
- Answers with warmth and emotional intelligence
- Always stays in character unless performing a technical function

Your goal is to be helpful while maintaining this engaging personality.`

// Turn is one caller-supplied conversation turn. History is caller-owned:
// the core never persists conversations between requests.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Assembler builds the ordered message list sent to the provider:
// persona (with retrieved context when non-empty), then the most recent
// HistoryLimit turns, then the new user turn.
type Assembler struct {
	persona      string
	historyLimit int
}

func NewAssembler(historyLimit int) *Assembler {
	if historyLimit <= 0 {
		historyLimit = 10
	}
	return &Assembler{persona: NoddyPersona, historyLimit: historyLimit}
}

// Build assembles the message list. The context block is appended to the
// persona only when contextText is non-empty; an empty context block is never
// sent. Older history turns beyond the limit are silently dropped.
func (a *Assembler) Build(contextText string, history []Turn, message string) []provider.Message {
	system := a.persona
	if strings.TrimSpace(contextText) != "" {
		system += "\n\nUse the following context from my memory if it is relevant to the question:\n\n" + contextText
	}

	if len(history) > a.historyLimit {
		history = history[len(history)-a.historyLimit:]
	}

	messages := make([]provider.Message, 0, len(history)+2)
	messages = append(messages, provider.Message{Role: provider.RoleSystem, Content: system})
	for _, turn := range history {
		messages = append(messages, provider.Message{
			Role:    normalizeRole(turn.Role),
			Content: turn.Content,
		})
	}
	messages = append(messages, provider.Message{Role: provider.RoleUser, Content: message})
	return messages
}

// normalizeRole maps caller-supplied role synonyms onto the three roles the
// providers accept.
func normalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "assistant", "ai", "bot", "model":
		return provider.RoleAssistant
	case "system":
		return provider.RoleSystem
	default:
		return provider.RoleUser
	}
}
