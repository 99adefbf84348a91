// Package router classifies an utterance to one or more specialists.
package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/avvvet/officebuddy/internal/catalog"
	"github.com/avvvet/officebuddy/internal/llm"
	"github.com/avvvet/officebuddy/internal/metrics"
	"github.com/avvvet/officebuddy/internal/models"
	"github.com/avvvet/officebuddy/internal/prompts"
	"github.com/rs/zerolog"
)

// DefaultThreshold is the confidence below which a turn is clarified
const DefaultThreshold = 0.7

// historyWindow is how many trailing messages the router sees
const historyWindow = 4

// Router wraps the completion provider with a deterministic keyword fallback
type Router struct {
	provider  llm.Provider
	catalog   *catalog.Catalog
	valid     map[string]bool
	threshold float64
	logger    zerolog.Logger
}

// New creates a router over the given specialist names. "general" is
// always accepted.
func New(provider llm.Provider, cat *catalog.Catalog, specialists []string, threshold float64, logger zerolog.Logger) *Router {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	valid := map[string]bool{models.SpecialistGeneral: true}
	for _, s := range specialists {
		valid[s] = true
	}
	return &Router{
		provider:  provider,
		catalog:   cat,
		valid:     valid,
		threshold: threshold,
		logger:    logger.With().Str("component", "router").Logger(),
	}
}

// routerDecision is the JSON the model is asked to produce. Specialist and
// Confidence accept the older single-selection shape.
type routerDecision struct {
	Specialists          []models.SpecialistIntent `json:"specialists"`
	IsMultiIntent        bool                      `json:"is_multi_intent"`
	NeedsClarification   bool                      `json:"needs_clarification"`
	IsGreeting           bool                      `json:"is_greeting"`
	IsFarewell           bool                      `json:"is_farewell"`
	ClarificationMessage string                    `json:"clarification_message"`
	Specialist           string                    `json:"specialist"`
	Confidence           float64                   `json:"confidence"`
}

// Route classifies utterance. Unparseable output and provider failures
// fall back to keywords; only a rate limit that outlived the provider
// fallback is returned as an error.
func (r *Router) Route(ctx context.Context, utterance string, history []models.Message, current string) (*models.RoutingResult, error) {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	messages := append(append([]models.Message(nil), history...), models.Message{Role: models.RoleUser, Content: utterance})

	resp, err := r.provider.Complete(ctx, &llm.LLMRequest{
		SystemPrompt: prompts.BuildRouterPrompt(r.catalog, current),
		Messages:     messages,
		MaxTokens:    400,
		Temperature:  0.1,
	})
	if err != nil {
		if llm.IsRateLimited(err) {
			r.logger.Error().Err(err).Msg("❌ routing rate limited")
			return nil, fmt.Errorf("routing: %w", llm.ErrRateLimited)
		}
		r.logger.Warn().Err(err).Msg("⚠️ routing call failed, using keywords")
		return r.record(r.KeywordRoute(utterance)), nil
	}

	var d routerDecision
	if !llm.DecodeJSON(resp.Content, &d) {
		r.logger.Warn().Msg("⚠️ unparseable routing decision, using keywords")
		return r.record(r.KeywordRoute(utterance)), nil
	}
	result, ok := r.fromDecision(&d, utterance)
	if !ok {
		r.logger.Warn().Msg("⚠️ routing decision named no known specialist, using keywords")
		return r.record(r.KeywordRoute(utterance)), nil
	}
	return r.record(result), nil
}

func (r *Router) fromDecision(d *routerDecision, utterance string) (*models.RoutingResult, bool) {
	entries := d.Specialists
	if len(entries) == 0 && d.Specialist != "" {
		entries = []models.SpecialistIntent{{Specialist: d.Specialist, Intent: utterance, Confidence: d.Confidence}}
	}

	seen := map[string]bool{}
	var picked []models.SpecialistIntent
	for _, e := range entries {
		name := strings.ToLower(strings.TrimSpace(e.Specialist))
		if !r.valid[name] || seen[name] {
			continue
		}
		seen[name] = true
		e.Specialist = name
		e.Confidence = clamp(e.Confidence)
		if strings.TrimSpace(e.Intent) == "" {
			e.Intent = utterance
		}
		picked = append(picked, e)
	}
	if len(picked) == 0 {
		return nil, false
	}

	// "general" only stands alone
	if len(picked) > 1 {
		filtered := picked[:0]
		for _, e := range picked {
			if e.Specialist != models.SpecialistGeneral {
				filtered = append(filtered, e)
			}
		}
		picked = filtered
	}

	result := &models.RoutingResult{
		SelectedSpecialist:   picked[0].Specialist,
		Confidence:           picked[0].Confidence,
		IsMultiIntent:        len(picked) > 1,
		SelectedSpecialists:  picked,
		NeedsClarification:   d.NeedsClarification,
		IsGreeting:           d.IsGreeting,
		IsFarewell:           d.IsFarewell,
		ClarificationMessage: strings.TrimSpace(d.ClarificationMessage),
		Source:               models.RouteSourceLLM,
	}
	return r.applyThreshold(result), true
}

// applyThreshold forces clarification on low confidence. Greetings and
// farewells are never clarified.
func (r *Router) applyThreshold(result *models.RoutingResult) *models.RoutingResult {
	if result.IsGreeting || result.IsFarewell {
		result.NeedsClarification = false
		return result
	}
	if result.Confidence < r.threshold {
		result.NeedsClarification = true
	}
	if result.NeedsClarification && result.ClarificationMessage == "" {
		result.ClarificationMessage = prompts.ClarificationMessage
	}
	return result
}

func (r *Router) record(result *models.RoutingResult) *models.RoutingResult {
	for _, s := range result.SelectedSpecialists {
		metrics.RoutingDecisions.WithLabelValues(result.Source, s.Specialist).Inc()
	}
	r.logger.Debug().
		Str("source", result.Source).
		Str("specialist", result.SelectedSpecialist).
		Float64("confidence", result.Confidence).
		Bool("multi", result.IsMultiIntent).
		Msg("🔀 routed")
	return result
}

// Threshold returns the configured confidence cutoff
func (r *Router) Threshold() float64 {
	return r.threshold
}

func clamp(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}
