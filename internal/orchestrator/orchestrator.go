// Package orchestrator is the per-session conversation state machine. It
// decides between continuing a pending action and routing afresh, runs one
// or several specialists, and is the only writer of session state.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/avvvet/officebuddy/internal/audit"
	"github.com/avvvet/officebuddy/internal/llm"
	"github.com/avvvet/officebuddy/internal/memory"
	"github.com/avvvet/officebuddy/internal/metrics"
	"github.com/avvvet/officebuddy/internal/models"
	"github.com/avvvet/officebuddy/internal/prompts"
	"github.com/avvvet/officebuddy/internal/specialist"
	"github.com/rs/zerolog"
)

// ErrNotLoggedIn is returned for turns on a session that was never created,
// was logged out or has expired
var ErrNotLoggedIn = errors.New("session is not logged in")

// maxHandoffs bounds re-routing between specialists within one turn
const maxHandoffs = 1

// routerWindow is how much history the router and general responder see
const routerWindow = 4

// Router classifies an utterance
type Router interface {
	Route(ctx context.Context, utterance string, history []models.Message, current string) (*models.RoutingResult, error)
}

// Planner runs one specialist turn
type Planner interface {
	Handle(ctx context.Context, spec *specialist.Specialist, turn *specialist.Turn) *specialist.Result
}

// Auditor accepts turn records without blocking
type Auditor interface {
	Enqueue(rec *audit.Record) bool
}

// Deps are built once at startup and shared by all sessions
type Deps struct {
	Memory      *memory.Manager
	Router      Router
	Planner     Planner
	Specialists map[string]*specialist.Specialist
	Provider    llm.Provider // general responder and multi-intent combiner
	Audit       Auditor
	Logger      zerolog.Logger
}

type Orchestrator struct {
	memory      *memory.Manager
	router      Router
	planner     Planner
	specialists map[string]*specialist.Specialist
	provider    llm.Provider
	audit       Auditor
	logger      zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(d Deps) *Orchestrator {
	return &Orchestrator{
		memory:      d.Memory,
		router:      d.Router,
		planner:     d.Planner,
		specialists: d.Specialists,
		provider:    d.Provider,
		audit:       d.Audit,
		logger:      d.Logger.With().Str("component", "orchestrator").Logger(),
		locks:       make(map[string]*sync.Mutex),
	}
}

// TurnResult is what the front end gets back for one utterance
type TurnResult struct {
	Reply      string
	NeedsInput bool
	Specialist string
	Routing    *models.RoutingResult
}

// sessionLock serializes turns within a session
func (o *Orchestrator) sessionLock(sessionID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		o.locks[sessionID] = l
	}
	return l
}

// Login creates a fresh session for an authenticated user
func (o *Orchestrator) Login(ctx context.Context, sessionID string, user models.UserProfile) error {
	if sessionID == "" || user.UserID == "" {
		return fmt.Errorf("login needs a session id and a user id")
	}
	l := o.sessionLock(sessionID)
	l.Lock()
	defer l.Unlock()

	if _, err := o.memory.Create(ctx, sessionID, user); err != nil {
		return err
	}
	metrics.ActiveSessions.Set(float64(o.memory.GetActiveSessionCount()))
	return nil
}

// Logout ends the session and drops its cached history
func (o *Orchestrator) Logout(ctx context.Context, sessionID string) error {
	l := o.sessionLock(sessionID)
	l.Lock()
	err := o.memory.End(ctx, sessionID)
	l.Unlock()

	o.forget(sessionID)
	return err
}

// forget drops the per-session lock once the session is gone
func (o *Orchestrator) forget(sessionIDs ...string) {
	o.mu.Lock()
	for _, id := range sessionIDs {
		delete(o.locks, id)
	}
	o.mu.Unlock()
	metrics.ActiveSessions.Set(float64(o.memory.GetActiveSessionCount()))
}

// Prune releases cache and lock entries of sessions that expired in the
// store
func (o *Orchestrator) Prune(ctx context.Context) error {
	evicted, err := o.memory.Prune(ctx)
	o.forget(evicted...)
	return err
}

// ClearHistory wipes transcript and pending action; the user stays logged in
func (o *Orchestrator) ClearHistory(ctx context.Context, sessionID string) error {
	l := o.sessionLock(sessionID)
	l.Lock()
	defer l.Unlock()

	state, err := o.load(ctx, sessionID)
	if err != nil {
		return err
	}
	return o.memory.ClearHistory(ctx, state)
}

func (o *Orchestrator) load(ctx context.Context, sessionID string) (*memory.ConversationState, error) {
	state, err := o.memory.Load(ctx, sessionID)
	if errors.Is(err, memory.ErrSessionNotFound) {
		o.forget(sessionID)
		return nil, ErrNotLoggedIn
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return state, nil
}

// HandleMessage processes one utterance to completion: routing, specialist
// execution, state update and persistence
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID, utterance string) (*TurnResult, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return nil, fmt.Errorf("empty message")
	}

	l := o.sessionLock(sessionID)
	l.Lock()
	defer l.Unlock()

	start := time.Now()
	state, err := o.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	rec := audit.NewRecord(sessionID, state.User.UserID, utterance)
	result, outcome := o.process(ctx, state, utterance, rec)

	if err := o.memory.AppendTurn(ctx, state, utterance, result.Reply); err != nil {
		return nil, err
	}
	if err := o.memory.Save(ctx, state); err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	metrics.TurnsTotal.WithLabelValues(outcome).Inc()
	metrics.TurnDuration.Observe(elapsed.Seconds())

	rec.Reply = result.Reply
	rec.Routing = result.Routing
	rec.LatencyMs = elapsed.Milliseconds()
	if o.audit != nil {
		o.audit.Enqueue(rec)
	}

	o.logger.Info().
		Str("session", sessionID).
		Str("outcome", outcome).
		Str("specialist", result.Specialist).
		Bool("needs_input", result.NeedsInput).
		Bool("pending", state.HasPending()).
		Dur("latency", elapsed).
		Msg("✅ turn complete")
	return result, nil
}

// process runs the state machine for one turn and applies the outcome to
// state. It returns the reply and an outcome label for metrics.
func (o *Orchestrator) process(ctx context.Context, state *memory.ConversationState, utterance string, rec *audit.Record) (*TurnResult, string) {
	recent := o.recent(ctx, state)

	var routing *models.RoutingResult
	if state.HasPending() && o.specialists[state.Specialist] != nil {
		routing = pendingRouting(state.Specialist, utterance)
	} else {
		var err error
		routing, err = o.router.Route(ctx, utterance, recent, state.Specialist)
		if err != nil {
			o.logger.Error().Err(err).Str("session", state.SessionID).Msg("❌ routing failed")
			rec.Success = false
			return &TurnResult{Reply: prompts.RetryMessage}, "error"
		}
	}

	switch {
	case routing.IsGreeting || routing.IsFarewell:
		rec.Success = true
		return &TurnResult{Reply: o.generalReply(ctx, state, recent, utterance, routing), Specialist: models.SpecialistGeneral, Routing: routing}, "general"

	case routing.NeedsClarification:
		rec.Success = true
		msg := routing.ClarificationMessage
		if msg == "" {
			msg = prompts.ClarificationMessage
		}
		return &TurnResult{Reply: msg, NeedsInput: true, Routing: routing}, "clarify"

	case routing.SelectedSpecialist == models.SpecialistGeneral || o.specialists[routing.SelectedSpecialist] == nil:
		rec.Success = true
		return &TurnResult{Reply: o.generalReply(ctx, state, recent, utterance, routing), Specialist: models.SpecialistGeneral, Routing: routing}, "general"

	case routing.IsMultiIntent && len(routing.SelectedSpecialists) > 1:
		return o.fanOut(ctx, state, utterance, routing, rec), "multi"
	}

	var pending *models.PendingAction
	if state.Specialist == routing.SelectedSpecialist {
		pending = state.Pending
	}
	name, res := o.runSpecialist(ctx, state, routing.SelectedSpecialist, utterance, pending, 0)
	o.recordResult(rec, name, res)
	rec.Success = res.Success

	state.Specialist = name
	state.Pending = nil
	if res.NeedsFollowup {
		state.Pending = res.Pending
	}

	outcome := "specialist"
	if !res.Success {
		outcome = "error"
	}
	return &TurnResult{
		Reply:      replyText(res),
		NeedsInput: res.NeedsFollowup,
		Specialist: name,
		Routing:    routing,
	}, outcome
}

// fanOut runs every routed specialist in order with a fresh context. The
// last result that needs follow-up owns the session's pending action.
func (o *Orchestrator) fanOut(ctx context.Context, state *memory.ConversationState, utterance string, routing *models.RoutingResult, rec *audit.Record) *TurnResult {
	var (
		replies    []prompts.SpecialistReply
		followName string
		followUp   *models.PendingAction
		needsInput bool
		lastName   string
	)
	rec.Success = true

	for _, si := range routing.SelectedSpecialists {
		if o.specialists[si.Specialist] == nil {
			continue
		}
		intent := strings.TrimSpace(si.Intent)
		if intent == "" {
			intent = utterance
		}
		name, res := o.runSpecialist(ctx, state, si.Specialist, intent, nil, 0)
		o.recordResult(rec, name, res)
		if !res.Success {
			rec.Success = false
		}
		replies = append(replies, prompts.SpecialistReply{Specialist: name, Message: replyText(res)})
		lastName = name
		if res.NeedsFollowup {
			needsInput = true
			followName = name
			followUp = res.Pending
		}
	}

	if len(replies) == 0 {
		return &TurnResult{Reply: prompts.ClarificationMessage, NeedsInput: true, Routing: routing}
	}

	state.Pending = followUp
	state.Specialist = lastName
	if followName != "" {
		state.Specialist = followName
	}

	return &TurnResult{
		Reply:      o.combine(ctx, utterance, replies),
		NeedsInput: needsInput,
		Specialist: state.Specialist,
		Routing:    routing,
	}
}

// runSpecialist runs one specialist and follows at most maxHandoffs
// handoffs, passing the utterance through unchanged
func (o *Orchestrator) runSpecialist(ctx context.Context, state *memory.ConversationState, name, utterance string, pending *models.PendingAction, hops int) (string, *specialist.Result) {
	res := o.planner.Handle(ctx, o.specialists[name], &specialist.Turn{
		SessionID: state.SessionID,
		User:      state.User,
		Utterance: utterance,
		History:   state.Messages,
		Pending:   pending,
	})

	if res.HandoffTo == "" {
		return name, res
	}
	target := res.HandoffTo
	if o.specialists[target] != nil && target != name && hops < maxHandoffs {
		o.logger.Info().Str("session", state.SessionID).Str("from", name).Str("to", target).Msg("🔁 handoff")
		next, nextRes := o.runSpecialist(ctx, state, target, utterance, nil, hops+1)
		nextRes.Calls = append(res.Calls, nextRes.Calls...)
		return next, nextRes
	}

	o.logger.Warn().Str("session", state.SessionID).Str("from", name).Str("to", target).Msg("⚠️ handoff refused")
	res.HandoffTo = ""
	if strings.TrimSpace(res.Message) == "" {
		res.Message = prompts.FallbackMessage
	}
	return name, res
}

func (o *Orchestrator) recordResult(rec *audit.Record, name string, res *specialist.Result) {
	rec.Specialists = append(rec.Specialists, name)
	if res.Action != nil {
		rec.Actions = append(rec.Actions, string(res.Action.Kind))
	}
	for _, c := range res.Calls {
		rec.APICalls = append(rec.APICalls, audit.APICall{
			OperationID: c.OperationID,
			Method:      c.Method,
			Endpoint:    c.Endpoint,
			Payload:     c.Payload,
			Response:    c.Response,
			Status:      c.Status,
			Success:     c.Success,
		})
	}
}

// recent returns the short history window, read from the session's buffer
func (o *Orchestrator) recent(ctx context.Context, state *memory.ConversationState) []models.Message {
	msgs, err := o.memory.RecentHistory(ctx, state, routerWindow)
	if err != nil {
		o.logger.Warn().Err(err).Str("session", state.SessionID).Msg("⚠️ history buffer unavailable")
		if len(state.Messages) > routerWindow {
			return state.Messages[len(state.Messages)-routerWindow:]
		}
		return state.Messages
	}
	return msgs
}

func pendingRouting(name, utterance string) *models.RoutingResult {
	metrics.RoutingDecisions.WithLabelValues(models.RouteSourcePending, name).Inc()
	return &models.RoutingResult{
		SelectedSpecialist:  name,
		Confidence:          1.0,
		SelectedSpecialists: []models.SpecialistIntent{{Specialist: name, Intent: utterance, Confidence: 1.0}},
		Source:              models.RouteSourcePending,
	}
}

func replyText(res *specialist.Result) string {
	if strings.TrimSpace(res.Message) == "" {
		return prompts.FallbackMessage
	}
	return res.Message
}
