package prompts

import (
	"fmt"
	"strings"
	"time"

	"github.com/avvvet/officebuddy/internal/catalog"
	"github.com/avvvet/officebuddy/internal/models"
)

const SpecialistPrompt = `You are the %s specialist for OfficeBuddy. %s
Today is %s.

USER:
%s
%s
AVAILABLE OPERATIONS (use these exact ids and field names):
%s
GUIDANCE:
%s
EARLIER CONVERSATION SUMMARY:
%s

RULES:
1. Never invent identifiers. Fields marked "from <lookup>" must come from that lookup's results; if you don't have them, use fetch_options.
2. If a required field is missing and is not from a lookup, ask for it with clarify.
3. If the message belongs to another domain, use handoff with the specialist name.

RESPONSE FORMAT (JSON only):
{
  "action": "api_call | fetch_options | clarify | respond | handoff",
  "api_id": "operation id",
  "dependent_api_id": "lookup operation id, for fetch_options",
  "params": {"field": "value"},
  "missing_fields": ["field"],
  "message": "text for the user (clarify/respond)",
  "handoff_to": "specialist name"
}`

// SpecialistInput is everything the decision prompt is built from
type SpecialistInput struct {
	Name        string
	Description string
	User        models.UserProfile
	Pending     *models.PendingAction
	Options     []string // rendered option lines, already numbered
	Domain      *catalog.Domain
	Summary     string
	Now         time.Time
}

func BuildSpecialistPrompt(in SpecialistInput) string {
	summary := in.Summary
	if summary == "" {
		summary = "None."
	}
	guidance := "None."
	if in.Domain != nil && strings.TrimSpace(in.Domain.Guidance) != "" {
		guidance = strings.TrimSpace(in.Domain.Guidance)
	}
	return fmt.Sprintf(SpecialistPrompt,
		in.Name,
		in.Description,
		in.Now.Format("2006-01-02 (Monday)"),
		FormatUser(in.User),
		buildPendingSection(in.Pending, in.Options),
		buildOperationsSection(in.Domain),
		guidance,
		summary,
	)
}

func buildPendingSection(p *models.PendingAction, options []string) string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nIN-PROGRESS REQUEST:\n")
	b.WriteString(fmt.Sprintf("- operation: %s\n", p.TargetOperationID))
	if len(p.CollectedParams) > 0 {
		b.WriteString(fmt.Sprintf("- collected: %v\n", p.CollectedParams))
	}
	if len(p.MissingFields) > 0 {
		b.WriteString(fmt.Sprintf("- still missing: %s\n", strings.Join(p.MissingFields, ", ")))
	}
	if len(options) > 0 {
		b.WriteString(fmt.Sprintf("- options shown to the user (from %s):\n", p.DependentOperationID))
		for _, line := range options {
			b.WriteString("  " + line + "\n")
		}
	}
	return b.String()
}

func buildOperationsSection(d *catalog.Domain) string {
	if d == nil {
		return "None.\n"
	}
	var b strings.Builder
	for _, op := range d.Operations {
		b.WriteString(fmt.Sprintf("- %s (%s %s): %s\n", op.ID, op.Method, op.Endpoint, op.Description))
		if len(op.RequiredFields) > 0 {
			b.WriteString("  required: " + describeFields(&op, op.RequiredFields) + "\n")
		}
		if len(op.OptionalFields) > 0 {
			b.WriteString("  optional: " + strings.Join(op.OptionalFields, ", ") + "\n")
		}
	}
	return b.String()
}

func describeFields(op *catalog.Operation, fields []string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if dep, ok := op.DependentForField(f); ok {
			parts = append(parts, fmt.Sprintf("%s (from %s)", f, dep))
			continue
		}
		parts = append(parts, f)
	}
	return strings.Join(parts, ", ")
}
