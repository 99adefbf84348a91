package orchestrator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/avvvet/officebuddy/internal/llm"
	"github.com/avvvet/officebuddy/internal/memory"
	"github.com/avvvet/officebuddy/internal/models"
	"github.com/avvvet/officebuddy/internal/prompts"
)

var optionLineRe = regexp.MustCompile(`(?m)^\s*\d+\.\s+.+$`)

// generalReply answers greetings, farewells and small talk. It never
// touches backend state.
func (o *Orchestrator) generalReply(ctx context.Context, state *memory.ConversationState, recent []models.Message, utterance string, routing *models.RoutingResult) string {
	fallback := prompts.ClarificationMessage
	switch {
	case routing.IsFarewell:
		fallback = "Goodbye! Have a great day."
	case routing.IsGreeting:
		name := state.User.Name
		if name == "" {
			name = "there"
		}
		fallback = fmt.Sprintf("Hello %s! %s", name, prompts.ClarificationMessage)
	}
	if o.provider == nil {
		return fallback
	}

	messages := append(append([]models.Message(nil), recent...), models.Message{Role: models.RoleUser, Content: utterance})
	resp, err := o.provider.Complete(ctx, &llm.LLMRequest{
		SystemPrompt: prompts.BuildGeneralPrompt(state.User.Name),
		Messages:     messages,
		MaxTokens:    300,
		Temperature:  0.7,
	})
	if err != nil || strings.TrimSpace(resp.Content) == "" {
		if err != nil {
			o.logger.Warn().Err(err).Msg("⚠️ general reply failed, using fallback")
		}
		return fallback
	}
	return strings.TrimSpace(resp.Content)
}

// combine merges multi-intent replies. One reply is used verbatim; the
// combined text must keep every numbered option line or the plain
// concatenation is used instead.
func (o *Orchestrator) combine(ctx context.Context, utterance string, replies []prompts.SpecialistReply) string {
	if len(replies) == 1 {
		return replies[0].Message
	}
	floor := prompts.ConcatReplies(replies)
	if o.provider == nil {
		return floor
	}

	resp, err := o.provider.Complete(ctx, &llm.LLMRequest{
		SystemPrompt: prompts.BuildCombinePrompt(utterance, replies),
		Messages:     []models.Message{{Role: models.RoleUser, Content: utterance}},
		MaxTokens:    600,
		Temperature:  0.3,
	})
	if err != nil {
		o.logger.Warn().Err(err).Msg("⚠️ combine failed, concatenating")
		return floor
	}
	combined := strings.TrimSpace(resp.Content)
	if combined == "" || !keepsOptionLines(combined, replies) {
		return floor
	}
	return combined
}

func keepsOptionLines(combined string, replies []prompts.SpecialistReply) bool {
	for _, r := range replies {
		for _, line := range optionLineRe.FindAllString(r.Message, -1) {
			if !strings.Contains(combined, strings.TrimSpace(line)) {
				return false
			}
		}
	}
	return true
}
