package specialist

import (
	"context"
	"fmt"
	"strings"

	"github.com/avvvet/officebuddy/internal/backend"
	"github.com/avvvet/officebuddy/internal/catalog"
	"github.com/avvvet/officebuddy/internal/models"
	"github.com/avvvet/officebuddy/internal/prompts"
	"github.com/avvvet/officebuddy/internal/resolver"
	"github.com/google/uuid"
)

// nameResolvedOps need an identifier from a lookup; a value that is not an
// identifier is treated as an item name and looked up by the planner
var nameResolvedOps = map[string]bool{
	"food_order":  true,
	"leave_apply": true,
	"room_book":   true,
	"desk_book":   true,
}

// prepare applies every deterministic correction between the model's
// decision and execution
func (p *Planner) prepare(ctx context.Context, spec *Specialist, action *models.AgentAction, turn *Turn) (*models.AgentAction, []CallRecord) {
	if resolved, ok := p.applySelection(turn); ok {
		p.logger.Debug().Str("session", turn.SessionID).Str("operation", resolved.OperationID).Msg("🎯 option selected from reply")
		if resolved.Kind != models.ActionAPICall {
			return resolved, nil
		}
		return p.gate(resolved), nil
	}

	switch action.Kind {
	case models.ActionAPICall, models.ActionClarify, models.ActionFetchOptions:
	default:
		return action, nil
	}

	if action.Params == nil {
		action.Params = map[string]any{}
	}
	if action.OperationID == "" && action.Kind != models.ActionFetchOptions {
		if turn.Pending == nil {
			return action, nil
		}
		action.OperationID = turn.Pending.TargetOperationID
	}

	if action.Kind == models.ActionFetchOptions {
		if !p.normalizeFetch(action) {
			return p.missingOperation(action.OperationID), nil
		}
	}

	op, ok := p.catalog.GetOperation(action.OperationID)
	if !ok {
		return p.missingOperation(action.OperationID), nil
	}
	if !spec.Owns(op) {
		return &models.AgentAction{Kind: models.ActionHandoff, HandoffTo: op.Domain, OperationID: op.ID}, nil
	}

	if pending := turn.Pending; pending != nil && pending.TargetOperationID == op.ID {
		for k, v := range pending.CollectedParams {
			if _, set := action.Params[k]; !set {
				action.Params[k] = v
			}
		}
	}

	fillLeaveDates(op, action.Params, turn.Utterance)
	normalizeNested(op, action.Params)

	calls := p.sanitizeIdentifiers(ctx, op, action, turn)

	if action.Kind == models.ActionAPICall {
		return p.gate(action), calls
	}
	return action, calls
}

// applySelection maps a reply onto the options of the pending lookup. The
// result always targets the pending operation, whatever the model decided.
func (p *Planner) applySelection(turn *Turn) (*models.AgentAction, bool) {
	pending := turn.Pending
	if !pending.HasOptions() {
		return nil, false
	}
	target, ok := p.catalog.GetOperation(pending.TargetOperationID)
	if !ok {
		return nil, false
	}
	var nameField, idField string
	if dep, ok := p.catalog.GetOperation(pending.DependentOperationID); ok {
		nameField, idField = dep.NameField, dep.IDField
	}
	if target.ID == pending.DependentOperationID {
		return describeSelection(turn, target, nameField)
	}
	shape := resolver.ShapeFor(target, pending.DependentOperationID)
	params, ok := resolver.Resolve(turn.Utterance, pending, shape, nameField, idField)
	if !ok {
		return nil, false
	}
	return &models.AgentAction{
		Kind:        models.ActionAPICall,
		OperationID: target.ID,
		Params:      params,
	}, true
}

// normalizeFetch fills in the lookup of a fetch_options action. The target
// is only ever the operation the model named; a lone lookup id is its own
// target.
func (p *Planner) normalizeFetch(action *models.AgentAction) bool {
	target, dep := action.OperationID, action.DependentOperationID
	if target == "" && dep == "" {
		return false
	}
	if target == "" {
		target = dep
	}
	if dep == "" {
		op, ok := p.catalog.GetOperation(target)
		if !ok {
			return false
		}
		dep = target
		if ids := op.DependentOperationIDs(); len(ids) > 0 {
			dep = ids[0]
		}
	}
	if _, ok := p.catalog.GetOperation(dep); !ok {
		action.OperationID = dep
		return false
	}
	action.OperationID, action.DependentOperationID = target, dep
	return true
}

// describeSelection answers a pick from a plain listing. Nothing is called;
// the user has to say what to do with the record.
func describeSelection(turn *Turn, lookup *catalog.Operation, nameField string) (*models.AgentAction, bool) {
	idx, ok := resolver.Select(turn.Utterance, turn.Pending.OptionsData, nameField)
	if !ok {
		return nil, false
	}
	return &models.AgentAction{
		Kind:        models.ActionRespond,
		OperationID: lookup.ID,
		Message:     fmt.Sprintf("You picked %s. What would you like to do with it?", FormatOption(lookup, turn.Pending.OptionsData[idx])),
	}, true
}

// gate turns an api_call that lacks required fields into fetch_options (for
// lookup-sourced fields) or clarify (for anything the user must type)
func (p *Planner) gate(action *models.AgentAction) *models.AgentAction {
	op, ok := p.catalog.GetOperation(action.OperationID)
	if !ok {
		return p.missingOperation(action.OperationID)
	}
	if action.Params == nil {
		action.Params = map[string]any{}
	}

	var missing []string
	lookup := ""
	for _, f := range op.RequiredFields {
		if !isEmptyValue(action.Params[f]) {
			continue
		}
		missing = append(missing, f)
		if dep, ok := op.DependentForField(f); ok && lookup == "" {
			lookup = dep
		}
	}
	if len(missing) == 0 {
		return action
	}

	if lookup != "" {
		return &models.AgentAction{
			Kind:                 models.ActionFetchOptions,
			OperationID:          op.ID,
			DependentOperationID: lookup,
			Params:               action.Params,
			MissingFields:        missing,
		}
	}
	return &models.AgentAction{
		Kind:          models.ActionClarify,
		OperationID:   op.ID,
		Params:        action.Params,
		MissingFields: missing,
		Message:       clarifyMessage(op, missing),
	}
}

func clarifyMessage(op *catalog.Operation, missing []string) string {
	fields := make([]string, 0, len(missing))
	for _, f := range missing {
		fields = append(fields, strings.ReplaceAll(f, "_", " "))
	}
	return fmt.Sprintf("To %s, I still need: %s.", strings.ToLower(op.Name), strings.Join(fields, ", "))
}

func (p *Planner) missingOperation(id string) *models.AgentAction {
	p.logger.Error().Err(ErrOperationNotFound).Str("operation", id).Msg("❌ catalog mismatch")
	return &models.AgentAction{Kind: models.ActionError, OperationID: id, Message: prompts.OperationMissingMessage}
}

// normalizeNested moves a flat selection value into the nested array shape
// the operation expects
func normalizeNested(op *catalog.Operation, params map[string]any) {
	s := op.Selection
	if s == nil || s.Shape != catalog.ShapeNested {
		return
	}
	v, ok := params[s.Field]
	if !ok || isEmptyValue(v) {
		return
	}
	shape := resolver.ShapeFor(op, "")
	nested := resolver.Apply(shape, fmt.Sprint(v), params)
	delete(params, s.Field)
	delete(params, shape.QuantityField)
	if existing, ok := params[s.ArrayField].([]any); ok {
		params[s.ArrayField] = append(existing, nested[s.ArrayField].([]any)...)
		return
	}
	params[s.ArrayField] = nested[s.ArrayField]
}

// sanitizeIdentifiers drops lookup-sourced values the model had no source
// for. Names given in place of identifiers are looked up for the fixed set
// of operations that support it.
func (p *Planner) sanitizeIdentifiers(ctx context.Context, op *catalog.Operation, action *models.AgentAction, turn *Turn) []CallRecord {
	var calls []CallRecord
	known := map[string]bool{}
	if turn.Pending.HasOptions() {
		known = resolver.KnownIDs(turn.Pending.OptionsData, "")
	}
	// identifiers collected on earlier turns came from the resolver or an
	// already sanitised call
	var carried map[string]any
	if pending := turn.Pending; pending != nil && pending.TargetOperationID == op.ID {
		carried = pending.CollectedParams
		for _, id := range carriedIdentifiers(op, carried) {
			known[id] = true
		}
	}
	lookups := map[string][]map[string]any{}

	check := func(field string, value any) (any, bool) {
		s := strings.TrimSpace(fmt.Sprint(value))
		if s == "" || value == nil {
			return nil, false
		}
		if known[s] {
			return s, true
		}
		if isIdentifier(s) && p.sourced(s, turn) {
			return s, true
		}
		if isIdentifier(s) || !nameResolvedOps[op.ID] {
			p.logger.Warn().Str("operation", op.ID).Str("field", field).Msg("⚠️ dropping unsourced identifier")
			return nil, false
		}

		depID, ok := op.DependentForField(field)
		if !ok {
			return nil, false
		}
		depOp, ok := p.catalog.GetOperation(depID)
		if !ok {
			return nil, false
		}
		records, fetched := lookups[depID]
		if !fetched {
			res, rec := p.call(ctx, depOp, lookupParams(depOp, action.Params), turn.User.Token)
			calls = append(calls, rec)
			if res.Success {
				records = backend.Records(res.Data)
			}
			lookups[depID] = records
		}
		if idx, ok := resolver.Select(s, records, depOp.NameField); ok {
			if id := resolver.CandidateID(records[idx], depOp.IDField); id != "" {
				p.logger.Debug().Str("operation", op.ID).Str("name", s).Msg("🔎 item name resolved")
				return id, true
			}
		}
		// Unresolved names go through unchanged; the backend reports them.
		return s, true
	}

	for field := range op.DependentFields {
		if s := op.Selection; s != nil && s.Shape == catalog.ShapeNested && s.Field == field {
			continue
		}
		v, present := action.Params[field]
		if !present {
			continue
		}
		if clean, ok := check(field, v); ok {
			action.Params[field] = clean
		} else if prev, ok := carried[field]; ok && !isEmptyValue(prev) {
			action.Params[field] = prev
		} else {
			delete(action.Params, field)
		}
	}

	if s := op.Selection; s != nil && s.Shape == catalog.ShapeNested {
		items, _ := action.Params[s.ArrayField].([]any)
		kept := make([]any, 0, len(items))
		for _, item := range items {
			line, ok := item.(map[string]any)
			if !ok {
				continue
			}
			clean, ok := check(s.Field, line[s.Field])
			if !ok {
				continue
			}
			line[s.Field] = clean
			kept = append(kept, line)
		}
		if len(kept) == 0 {
			delete(action.Params, s.ArrayField)
		} else {
			action.Params[s.ArrayField] = kept
		}
	}
	return calls
}

// sourced reports whether an identifier was typed by the user or shown to
// them in a rendered options list
func (p *Planner) sourced(id string, turn *Turn) bool {
	if strings.Contains(turn.Utterance, id) {
		return true
	}
	for _, m := range turn.History {
		fromUser := m.Role == models.RoleUser
		listed := m.Role == models.RoleAssistant && strings.Contains(m.Content, optionsIntro)
		if (fromUser || listed) && strings.Contains(m.Content, id) {
			return true
		}
	}
	return false
}

// carriedIdentifiers lists the lookup-sourced values already collected for op
func carriedIdentifiers(op *catalog.Operation, collected map[string]any) []string {
	var out []string
	for field := range op.DependentFields {
		if v, ok := collected[field]; ok && !isEmptyValue(v) {
			out = append(out, strings.TrimSpace(fmt.Sprint(v)))
		}
	}
	if s := op.Selection; s != nil && s.Shape == catalog.ShapeNested {
		items, _ := collected[s.ArrayField].([]any)
		for _, item := range items {
			if line, ok := item.(map[string]any); ok && !isEmptyValue(line[s.Field]) {
				out = append(out, strings.TrimSpace(fmt.Sprint(line[s.Field])))
			}
		}
	}
	return out
}

func isIdentifier(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// lookupParams keeps only the params a lookup operation accepts
func lookupParams(op *catalog.Operation, params map[string]any) map[string]any {
	out := map[string]any{}
	for _, f := range append(append([]string(nil), op.RequiredFields...), op.OptionalFields...) {
		if v, ok := params[f]; ok && !isEmptyValue(v) {
			out[f] = v
		}
	}
	return out
}
