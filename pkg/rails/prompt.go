package rails

import (
	"fmt"
	"strings"

	"github.com/minhyannv/guardrails-demo-go/pkg/kb"
)

// BuildSystemPrompt constructs the system prompt from the general
// instructions, the sample conversation and any retrieved context.
func BuildSystemPrompt(cfg *Config, chunks []kb.Chunk) string {
	var sb strings.Builder
	if cfg != nil {
		sb.WriteString(cfg.GeneralInstructions())
		if sample := strings.TrimSpace(cfg.SampleConversation); sample != "" {
			sb.WriteString("\n\n## Sample Conversation\n")
			sb.WriteString(sample)
		}
	}
	if md := ContextMarkdown(chunks); md != "" {
		sb.WriteString("\n\n")
		sb.WriteString(md)
	}
	return strings.TrimSpace(sb.String())
}

// ContextMarkdown renders retrieved chunks as a markdown list.
func ContextMarkdown(chunks []kb.Chunk) string {
	if len(chunks) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("## Relevant Context\n")
	sb.WriteString("Answer using only the context below. If it does not contain the answer, say you don't know.\n\n")
	for _, c := range chunks {
		title := sanitizeMarkdown(c.Title)
		if title == "" {
			title = "Untitled"
		}
		sb.WriteString(fmt.Sprintf("- **%s**: %s\n", title, sanitizeMarkdown(c.Text)))
	}
	return strings.TrimSpace(sb.String())
}

// sanitizeMarkdown keeps markdown fields single-line and trimmed.
func sanitizeMarkdown(value string) string {
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	return strings.Join(strings.Fields(value), " ")
}

// withSystemPrompt prepends content to the first system message, or adds a
// system message when the conversation has none. The input is not modified.
func withSystemPrompt(content string, msgs []Message) []Message {
	if content == "" {
		return append([]Message(nil), msgs...)
	}
	result := make([]Message, len(msgs))
	copy(result, msgs)
	for i, m := range result {
		if m.Role == RoleSystem {
			result[i].Content = content + "\n" + m.Content
			return result
		}
	}
	return append([]Message{{Role: RoleSystem, Content: content}}, result...)
}
