package prompts

import (
	"fmt"
	"strings"

	"github.com/avvvet/officebuddy/internal/catalog"
)

const RouterPrompt = `You are the intent router for OfficeBuddy, a workplace assistant. Decide which specialist(s) should handle the user's latest message.

SPECIALISTS:
%s
RULES:
1. A message can contain several requests ("check in and book a desk"). List every specialist involved, in the order the user mentioned them, each with the part of the message it should handle.
2. Use "general" for greetings, thanks, farewells, small talk or questions about what you can do.
3. Confidence is between 0 and 1. Use below 0.7 only if you are genuinely unsure.
4. The user is currently talking to: %s. Short follow-ups usually belong to that specialist.

RESPONSE FORMAT (JSON only, no prose):
{
  "specialists": [
    {"specialist": "name", "intent": "the part of the message for this specialist", "confidence": 0.0}
  ],
  "is_multi_intent": false,
  "needs_clarification": false,
  "is_greeting": false,
  "is_farewell": false,
  "clarification_message": "only when needs_clarification is true"
}`

// BuildRouterPrompt lists every domain with its operations and phrasings
func BuildRouterPrompt(cat *catalog.Catalog, current string) string {
	var b strings.Builder
	for _, d := range cat.Domains() {
		b.WriteString(fmt.Sprintf("- %s: %s\n", d.Name, d.Description))
		ops := make([]string, 0, len(d.Operations))
		for _, op := range d.Operations {
			ops = append(ops, op.Name)
		}
		b.WriteString(fmt.Sprintf("  operations: %s\n", strings.Join(ops, "; ")))
		if len(d.Examples) > 0 {
			b.WriteString(fmt.Sprintf("  examples: %q\n", d.Examples))
		}
	}
	b.WriteString("- general: greetings, farewells, thanks, help and anything else\n")

	if current == "" {
		current = "nobody yet"
	}
	return fmt.Sprintf(RouterPrompt, b.String(), current)
}
