package specialist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/avvvet/officebuddy/internal/backend"
	"github.com/avvvet/officebuddy/internal/catalog"
	"github.com/avvvet/officebuddy/internal/llm"
	"github.com/avvvet/officebuddy/internal/models"
	"github.com/avvvet/officebuddy/internal/prompts"
)

// optionsIntro opens every rendered options list
const optionsIntro = "Please choose one of the following"

// Execute carries out a prepared action
func (p *Planner) Execute(ctx context.Context, spec *Specialist, action *models.AgentAction, turn *Turn) *Result {
	switch action.Kind {
	case models.ActionAPICall:
		return p.executeCall(ctx, action, turn)
	case models.ActionFetchOptions:
		return p.executeFetch(ctx, action, turn)
	case models.ActionClarify:
		return p.executeClarify(action, turn)
	case models.ActionHandoff:
		if action.HandoffTo == "" || action.HandoffTo == spec.Name {
			return &Result{Success: true, Message: orFallback(action.Message)}
		}
		return &Result{Success: true, HandoffTo: action.HandoffTo, Message: action.Message}
	case models.ActionError:
		return &Result{Success: false, Message: orFallback(action.Message)}
	default:
		return &Result{Success: true, Message: orFallback(action.Message)}
	}
}

func (p *Planner) executeCall(ctx context.Context, action *models.AgentAction, turn *Turn) *Result {
	op, ok := p.catalog.GetOperation(action.OperationID)
	if !ok {
		return &Result{Message: prompts.OperationMissingMessage}
	}

	res, rec := p.call(ctx, op, action.Params, turn.User.Token)
	if !res.Success {
		p.logger.Warn().
			Str("session", turn.SessionID).
			Str("operation", op.ID).
			Int("status", res.Status).
			Str("error", res.Error).
			Msg("⚠️ backend call failed")
		return &Result{
			Message: fmt.Sprintf("I couldn't complete %s: %s", strings.ToLower(op.Name), backend.ErrorText(res.Data, res.Error)),
			Calls:   []CallRecord{rec},
		}
	}

	return &Result{
		Success:     true,
		Message:     p.humanize(ctx, turn.Utterance, op, res.Data),
		Calls:       []CallRecord{rec},
		SideEffects: fmt.Sprintf("%s %s", op.Method, op.Endpoint),
	}
}

func (p *Planner) executeFetch(ctx context.Context, action *models.AgentAction, turn *Turn) *Result {
	depOp, ok := p.catalog.GetOperation(action.DependentOperationID)
	if !ok {
		return &Result{Message: prompts.OperationMissingMessage}
	}

	res, rec := p.call(ctx, depOp, lookupParams(depOp, action.Params), turn.User.Token)
	calls := []CallRecord{rec}
	if !res.Success {
		// Keep whatever was pending so the user can retry the same step.
		return &Result{
			Message:       prompts.LookupFailedMessage,
			NeedsFollowup: turn.Pending != nil,
			Pending:       turn.Pending.Clone(),
			Calls:         calls,
		}
	}

	records := backend.Records(res.Data)
	if len(records) == 0 {
		return &Result{
			Success: true,
			Message: fmt.Sprintf("There are no %s available right now.", strings.ToLower(depOp.Name)),
			Calls:   calls,
		}
	}

	collected := copyParams(action.Params)
	if target, ok := p.catalog.GetOperation(action.OperationID); ok {
		if f, ok := target.FieldForDependent(depOp.ID); ok {
			delete(collected, f)
		}
	}

	lines := RenderOptions(depOp, records)
	intro := fmt.Sprintf("%s (%s):", optionsIntro, strings.ToLower(depOp.Name))
	return &Result{
		Success:       true,
		NeedsFollowup: true,
		Message:       intro + "\n" + strings.Join(lines, "\n") + "\n\nReply with the number or the name.",
		Pending: &models.PendingAction{
			TargetOperationID:    action.OperationID,
			DependentOperationID: depOp.ID,
			CollectedParams:      collected,
			MissingFields:        action.MissingFields,
			OptionsData:          records,
		},
		Calls: calls,
	}
}

func (p *Planner) executeClarify(action *models.AgentAction, turn *Turn) *Result {
	message := action.Message
	if message == "" {
		if op, ok := p.catalog.GetOperation(action.OperationID); ok && len(action.MissingFields) > 0 {
			message = clarifyMessage(op, action.MissingFields)
		} else {
			message = prompts.FallbackMessage
		}
	}

	target := action.OperationID
	prev := turn.Pending
	if target == "" && prev != nil {
		target = prev.TargetOperationID
	}
	if target == "" {
		return &Result{Success: true, NeedsFollowup: true, Message: message}
	}

	pending := &models.PendingAction{
		TargetOperationID: target,
		CollectedParams:   copyParams(action.Params),
		MissingFields:     action.MissingFields,
	}
	if prev != nil && prev.TargetOperationID == target {
		for k, v := range prev.CollectedParams {
			if _, set := pending.CollectedParams[k]; !set {
				pending.CollectedParams[k] = v
			}
		}
		pending.DependentOperationID = prev.DependentOperationID
		if op, ok := p.catalog.GetOperation(target); ok {
			if f, ok := op.FieldForDependent(prev.DependentOperationID); ok && isEmptyValue(pending.CollectedParams[f]) {
				pending.OptionsData = prev.OptionsData
			}
		}
	}

	return &Result{Success: true, NeedsFollowup: true, Message: message, Pending: pending}
}

// humanize turns a successful result into a reply. Any failure falls back
// to a fixed confirmation or a plain listing.
func (p *Planner) humanize(ctx context.Context, utterance string, op *catalog.Operation, data any) string {
	fallback := fmt.Sprintf("Done! %s completed.", op.Name)
	if records := backend.Records(data); op.IsRead() && len(records) > 0 {
		fallback = "Here is what I found:\n" + strings.Join(RenderOptions(op, records), "\n")
	}

	raw, err := json.Marshal(data)
	if err != nil || p.provider == nil {
		return fallback
	}
	resp, err := p.provider.Complete(ctx, &llm.LLMRequest{
		SystemPrompt: prompts.BuildHumanizePrompt(utterance, op.Name, string(raw)),
		Messages:     []models.Message{{Role: models.RoleUser, Content: "Write the reply."}},
		MaxTokens:    300,
		Temperature:  0.3,
	})
	if err != nil || strings.TrimSpace(resp.Content) == "" {
		if err != nil {
			p.logger.Warn().Err(err).Str("operation", op.ID).Msg("⚠️ humanize failed, using fallback")
		}
		return fallback
	}
	return strings.TrimSpace(resp.Content)
}

func orFallback(s string) string {
	if strings.TrimSpace(s) == "" {
		return prompts.FallbackMessage
	}
	return s
}
