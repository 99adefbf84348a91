package specialist

import (
	"context"
	"regexp"
	"strings"

	"github.com/avvvet/officebuddy/internal/llm"
	"github.com/avvvet/officebuddy/internal/models"
	"github.com/avvvet/officebuddy/internal/prompts"
)

var (
	fabricatedIDRe    = regexp.MustCompile(`(?i)\bID\s*[:#]\s*\d{4}\b`)
	interrogativeRe   = regexp.MustCompile(`(?i)\b(what|which|when|where|who|how|could|would|can|do you|should)\b`)
	minClarifyLength  = 20
	decisionMaxTokens = 800
)

// decision is the JSON the model is asked to produce
type decision struct {
	Action         string         `json:"action"`
	APIID          string         `json:"api_id"`
	DependentAPIID string         `json:"dependent_api_id"`
	Params         map[string]any `json:"params"`
	MissingFields  []string       `json:"missing_fields"`
	Message        string         `json:"message"`
	HandoffTo      string         `json:"handoff_to"`
}

var actionAliases = map[string]models.ActionKind{
	"api_call":      models.ActionAPICall,
	"call_api":      models.ActionAPICall,
	"execute":       models.ActionAPICall,
	"fetch_options": models.ActionFetchOptions,
	"show_options":  models.ActionFetchOptions,
	"clarify":       models.ActionClarify,
	"ask":           models.ActionClarify,
	"respond":       models.ActionRespond,
	"reply":         models.ActionRespond,
	"handoff":       models.ActionHandoff,
	"hand_off":      models.ActionHandoff,
	"error":         models.ActionError,
}

func (d *decision) toAction() (*models.AgentAction, bool) {
	kind, ok := actionAliases[strings.ToLower(strings.TrimSpace(d.Action))]
	if !ok {
		return nil, false
	}
	params := d.Params
	if params == nil {
		params = map[string]any{}
	}
	return &models.AgentAction{
		Kind:                 kind,
		OperationID:          d.APIID,
		DependentOperationID: d.DependentAPIID,
		Params:               params,
		Message:              strings.TrimSpace(d.Message),
		MissingFields:        d.MissingFields,
		HandoffTo:            strings.ToLower(strings.TrimSpace(d.HandoffTo)),
	}, true
}

// Decide asks the model for this turn's action. It never fails: provider
// errors and unparseable output become respond/clarify/error actions.
func (p *Planner) Decide(ctx context.Context, spec *Specialist, turn *Turn) *models.AgentAction {
	summary, recent := p.history(ctx, turn.History)

	var optionLines []string
	if turn.Pending.HasOptions() {
		depOp, _ := p.catalog.GetOperation(turn.Pending.DependentOperationID)
		optionLines = RenderOptions(depOp, turn.Pending.OptionsData)
	}

	system := prompts.BuildSpecialistPrompt(prompts.SpecialistInput{
		Name:        spec.Name,
		Description: spec.Description,
		User:        turn.User,
		Pending:     turn.Pending,
		Options:     optionLines,
		Domain:      spec.Domain,
		Summary:     summary,
		Now:         turn.Now,
	})

	messages := append(append([]models.Message(nil), recent...), models.Message{Role: models.RoleUser, Content: turn.Utterance})
	resp, err := p.provider.Complete(ctx, &llm.LLMRequest{
		SystemPrompt: system,
		Messages:     messages,
		MaxTokens:    decisionMaxTokens,
		Temperature:  0.2,
	})
	if err != nil {
		p.logger.Error().Err(err).Str("specialist", spec.Name).Msg("❌ decision call failed")
		msg := "I'm having trouble processing that right now. Please try again."
		if llm.IsRateLimited(err) {
			msg = prompts.RetryMessage
		}
		return &models.AgentAction{Kind: models.ActionError, Message: msg}
	}

	var d decision
	if llm.DecodeJSON(resp.Content, &d) {
		if action, ok := d.toAction(); ok {
			return action
		}
	}

	p.logger.Warn().Str("specialist", spec.Name).Msg("⚠️ unparseable decision, using recovery")
	return recoverUnparsed(resp.Content, turn)
}

// recoverUnparsed is the fallback chain for free text the model returned
// instead of a decision
func recoverUnparsed(raw string, turn *Turn) *models.AgentAction {
	text := strings.TrimSpace(raw)

	if fabricatedIDRe.MatchString(text) {
		if p := turn.Pending; p != nil && p.DependentOperationID != "" {
			return &models.AgentAction{
				Kind:                 models.ActionFetchOptions,
				OperationID:          p.TargetOperationID,
				DependentOperationID: p.DependentOperationID,
				Params:               copyParams(p.CollectedParams),
				MissingFields:        p.MissingFields,
				Message:              prompts.WaitForOptionsMessage,
			}
		}
		return &models.AgentAction{Kind: models.ActionRespond, Message: prompts.WaitForOptionsMessage}
	}

	if len(text) >= minClarifyLength && (strings.Contains(text, "?") || interrogativeRe.MatchString(text)) {
		return &models.AgentAction{Kind: models.ActionClarify, Message: text}
	}

	return &models.AgentAction{Kind: models.ActionRespond, Message: prompts.FallbackMessage}
}
