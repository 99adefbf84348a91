package models

import "time"

// Message is one role-tagged entry of a conversation transcript
type Message struct {
	Role      string    `json:"role"` // "user", "assistant" or "system"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// UserProfile is the identity snapshot taken at login
type UserProfile struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Department string `json:"department,omitempty"`
	Token      string `json:"token,omitempty"` // backend bearer token
}

// PendingAction is an in-flight operation that still needs user input.
// OptionsData, when set, is the verbatim record list returned by the
// dependent lookup and is never filled from model output.
type PendingAction struct {
	TargetOperationID    string           `json:"target_operation_id"`
	DependentOperationID string           `json:"dependent_operation_id,omitempty"`
	CollectedParams      map[string]any   `json:"collected_parameters"`
	MissingFields        []string         `json:"missing_fields"`
	OptionsData          []map[string]any `json:"options_data,omitempty"`
}

// HasOptions reports whether a previous lookup left options to pick from
func (p *PendingAction) HasOptions() bool {
	return p != nil && len(p.OptionsData) > 0
}

// Clone returns a deep enough copy for carrying state across turns
func (p *PendingAction) Clone() *PendingAction {
	if p == nil {
		return nil
	}
	c := &PendingAction{
		TargetOperationID:    p.TargetOperationID,
		DependentOperationID: p.DependentOperationID,
		CollectedParams:      make(map[string]any, len(p.CollectedParams)),
		MissingFields:        append([]string(nil), p.MissingFields...),
		OptionsData:          append([]map[string]any(nil), p.OptionsData...),
	}
	for k, v := range p.CollectedParams {
		c.CollectedParams[k] = v
	}
	return c
}

// SpecialistIntent is one slice of a (possibly multi-intent) utterance
type SpecialistIntent struct {
	Specialist string  `json:"specialist"`
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// RoutingResult is produced fresh for every routed turn
type RoutingResult struct {
	SelectedSpecialist   string             `json:"selected_specialist"`
	Confidence           float64            `json:"confidence"`
	IsMultiIntent        bool               `json:"is_multi_intent"`
	SelectedSpecialists  []SpecialistIntent `json:"selected_specialists"`
	NeedsClarification   bool               `json:"needs_clarification"`
	IsGreeting           bool               `json:"is_greeting"`
	IsFarewell           bool               `json:"is_farewell"`
	ClarificationMessage string             `json:"clarification_message,omitempty"`
	Source               string             `json:"source"` // "llm", "keyword" or "pending"
}

// Routing sources
const (
	RouteSourceLLM     = "llm"
	RouteSourceKeyword = "keyword"
	RouteSourcePending = "pending"
)

// SpecialistGeneral is the catch-all that no planner handles
const SpecialistGeneral = "general"

// ActionKind tags the AgentAction variant
type ActionKind string

const (
	ActionRespond      ActionKind = "respond"
	ActionAPICall      ActionKind = "api_call"
	ActionClarify      ActionKind = "clarify"
	ActionFetchOptions ActionKind = "fetch_options"
	ActionHandoff      ActionKind = "handoff"
	ActionError        ActionKind = "error"
)

// AgentAction is the decision a specialist makes for one turn
type AgentAction struct {
	Kind                 ActionKind     `json:"kind"`
	OperationID          string         `json:"operation_id,omitempty"`
	DependentOperationID string         `json:"dependent_operation_id,omitempty"`
	Params               map[string]any `json:"params,omitempty"`
	Message              string         `json:"message,omitempty"`
	MissingFields        []string       `json:"missing_fields,omitempty"`
	HandoffTo            string         `json:"handoff_to,omitempty"`
}

// IsTerminal reports whether the action ends the pending thread
func (a *AgentAction) IsTerminal() bool {
	return a.Kind == ActionRespond || a.Kind == ActionError
}

// Transport requests
type LoginRequest struct {
	SessionID string      `json:"session_id"`
	User      UserProfile `json:"user"`
}

type ChatRequest struct {
	SessionID   string `json:"session_id"`
	UserMessage string `json:"user_message"`
}

type SessionRequest struct {
	SessionID string `json:"session_id"`
}

// ChatResponse is what the front end receives for every request
type ChatResponse struct {
	SessionID    string  `json:"session_id"`
	Status       string  `json:"status"` // "NEEDS_INFO", "READY", "ERROR"
	Reply        string  `json:"reply"`
	NeedsInput   bool    `json:"needs_input"`
	Specialist   string  `json:"specialist,omitempty"`
	ErrorCode    *string `json:"error_code,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
}

// Status constants
const (
	StatusNeedsInfo = "NEEDS_INFO"
	StatusReady     = "READY"
	StatusError     = "ERROR"
)

// Error codes
const (
	ErrorLLMTimeout  = "LLM_API_TIMEOUT"
	ErrorParseError  = "PARSE_ERROR"
	ErrorNotLoggedIn = "NOT_LOGGED_IN"
	ErrorInternal    = "INTERNAL_ERROR"
)
