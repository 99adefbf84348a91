package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type decision struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		ok     bool
		action string
	}{
		{"plain", `{"action":"respond"}`, true, "respond"},
		{"fenced", "```json\n{\"action\":\"clarify\"}\n```", true, "clarify"},
		{"bare fence", "```\n{\"action\":\"api_call\"}\n```", true, "api_call"},
		{"prose around", `Sure! Here you go: {"action":"fetch_options","params":{"x":"}"}} hope it helps`, true, "fetch_options"},
		{"first span wins", `{"action":"first"} and {"action":"second"}`, true, "first"},
		{"skips invalid span", `{not json} then {"action":"ok"}`, true, "ok"},
		{"no json", "I am not sure what you mean", false, ""},
		{"empty", "   ", false, ""},
		{"unbalanced", `{"action":"respond"`, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d decision
			ok := DecodeJSON(tt.raw, &d)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.action, d.Action)
			}
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, "hello", StripCodeFences("  hello  "))
}

func TestFirstJSONObjectBracesInStrings(t *testing.T) {
	raw := `text {"message":"use {braces} freely","n":1} tail`
	assert.Equal(t, `{"message":"use {braces} freely","n":1}`, FirstJSONObject(raw))
}
