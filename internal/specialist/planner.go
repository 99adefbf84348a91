package specialist

import (
	"context"
	"errors"
	"time"

	"github.com/avvvet/officebuddy/internal/backend"
	"github.com/avvvet/officebuddy/internal/catalog"
	"github.com/avvvet/officebuddy/internal/compressor"
	"github.com/avvvet/officebuddy/internal/llm"
	"github.com/avvvet/officebuddy/internal/metrics"
	"github.com/avvvet/officebuddy/internal/models"
	"github.com/rs/zerolog"
)

// ErrOperationNotFound means the model or a pending action named an
// operation the catalogue does not have
var ErrOperationNotFound = errors.New("operation not found in catalog")

// Planner runs the shared decide/resolve/execute pipeline for any specialist
type Planner struct {
	provider   llm.Provider
	catalog    *catalog.Catalog
	backend    backend.Caller
	compressor *compressor.Compressor
	logger     zerolog.Logger
	now        func() time.Time
}

func NewPlanner(provider llm.Provider, cat *catalog.Catalog, caller backend.Caller, comp *compressor.Compressor, logger zerolog.Logger) *Planner {
	return &Planner{
		provider:   provider,
		catalog:    cat,
		backend:    caller,
		compressor: comp,
		logger:     logger.With().Str("component", "specialist").Logger(),
		now:        time.Now,
	}
}

// Handle runs one specialist turn end to end
func (p *Planner) Handle(ctx context.Context, spec *Specialist, turn *Turn) *Result {
	if turn.Now.IsZero() {
		turn.Now = p.now()
	}

	action := p.Decide(ctx, spec, turn)
	action, calls := p.prepare(ctx, spec, action, turn)
	metrics.SpecialistActions.WithLabelValues(spec.Name, string(action.Kind)).Inc()

	p.logger.Info().
		Str("session", turn.SessionID).
		Str("specialist", spec.Name).
		Str("action", string(action.Kind)).
		Str("operation", action.OperationID).
		Msg("🧭 action decided")

	result := p.Execute(ctx, spec, action, turn)
	result.Action = action
	result.Calls = append(calls, result.Calls...)
	return result
}

// history returns the summary and verbatim tail the decision prompt sees
func (p *Planner) history(ctx context.Context, messages []models.Message) (string, []models.Message) {
	if p.compressor != nil {
		return p.compressor.Build(ctx, messages)
	}
	if len(messages) > compressor.DefaultKeepRecent {
		messages = messages[len(messages)-compressor.DefaultKeepRecent:]
	}
	return "", messages
}

// call runs one backend request and records it for audit
func (p *Planner) call(ctx context.Context, op *catalog.Operation, params map[string]any, token string) (*backend.Result, CallRecord) {
	path, rest := backend.SplitPathParams(op.PathParams(), params)
	res := p.backend.Call(ctx, backend.Request{
		Method:     op.Method,
		Endpoint:   op.Endpoint,
		PathParams: path,
		Params:     rest,
		Token:      token,
	})

	success := "false"
	if res.Success {
		success = "true"
	}
	metrics.BackendCalls.WithLabelValues(op.ID, success).Inc()

	return res, CallRecord{
		OperationID: op.ID,
		Method:      op.Method,
		Endpoint:    op.Endpoint,
		Payload:     params,
		Response:    res.Data,
		Status:      res.Status,
		Success:     res.Success,
	}
}

func copyParams(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case []map[string]any:
		return len(t) == 0
	}
	return false
}
