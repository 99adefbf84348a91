// Package compressor keeps long conversations inside a bounded working set
// without losing the identifiers, dates and codes mentioned along the way.
package compressor

import (
	"context"
	"strings"

	"github.com/avvvet/officebuddy/internal/llm"
	"github.com/avvvet/officebuddy/internal/models"
	"github.com/avvvet/officebuddy/internal/prompts"
	"github.com/rs/zerolog"
)

// DefaultKeepRecent is how many trailing messages stay verbatim
const DefaultKeepRecent = 6

// Compressor summarizes the older part of a history
type Compressor struct {
	provider   llm.Provider
	keepRecent int
	logger     zerolog.Logger
}

func New(provider llm.Provider, keepRecent int, logger zerolog.Logger) *Compressor {
	if keepRecent <= 0 {
		keepRecent = DefaultKeepRecent
	}
	return &Compressor{
		provider:   provider,
		keepRecent: keepRecent,
		logger:     logger.With().Str("component", "compressor").Logger(),
	}
}

// Build splits history into a summary of the old part and the recent tail
func (c *Compressor) Build(ctx context.Context, messages []models.Message) (string, []models.Message) {
	if len(messages) <= c.keepRecent {
		return "", messages
	}
	summary := c.Summarize(ctx, messages, c.keepRecent)
	return summary, messages[len(messages)-c.keepRecent:]
}

// Summarize returns "" until history exceeds keepRecent. The result always
// contains every extracted identifier, date and code verbatim.
func (c *Compressor) Summarize(ctx context.Context, messages []models.Message, keepRecent int) string {
	if keepRecent <= 0 {
		keepRecent = c.keepRecent
	}
	if len(messages) <= keepRecent {
		return ""
	}

	extracted := ExtractCritical(messages)
	old := messages[:len(messages)-keepRecent]

	if len(old) <= 2 || c.provider == nil {
		return fallbackSummary(extracted, old)
	}

	resp, err := c.provider.Complete(ctx, &llm.LLMRequest{
		SystemPrompt: prompts.BuildSummaryPrompt(extracted.References()),
		Messages:     old,
		MaxTokens:    400,
		Temperature:  0.2,
	})
	if err != nil || strings.TrimSpace(resp.Content) == "" {
		c.logger.Warn().Err(err).Int("old_messages", len(old)).Msg("summary failed, using extracted context")
		return fallbackSummary(extracted, old)
	}

	return ensureReferences(strings.TrimSpace(resp.Content), extracted)
}

// ensureReferences appends any reference the summary dropped
func ensureReferences(summary string, extracted ExtractedContext) string {
	var missing []string
	for _, ref := range extracted.References() {
		if !strings.Contains(summary, ref) {
			missing = append(missing, ref)
		}
	}
	if len(missing) == 0 {
		return summary
	}
	return summary + "\nKey references: " + strings.Join(missing, ", ")
}

func fallbackSummary(extracted ExtractedContext, old []models.Message) string {
	var b strings.Builder
	b.WriteString("Earlier in this conversation:\n")
	if !extracted.IsEmpty() {
		b.WriteString(extracted.Bullets())
		b.WriteString("\n")
	}
	if extracted.IsEmpty() || len(old) <= 2 {
		for _, msg := range old {
			b.WriteString("- " + msg.Role + ": " + clip(msg.Content, 160) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func clip(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
