package router

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/avvvet/officebuddy/internal/catalog"
	"github.com/avvvet/officebuddy/internal/llm"
	"github.com/avvvet/officebuddy/internal/llm/llmtest"
	"github.com/avvvet/officebuddy/internal/models"
	"github.com/avvvet/officebuddy/internal/prompts"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const routerMarker = "intent router for OfficeBuddy"

var specialistNames = []string{"attendance", "leave", "booking", "cafeteria", "it"}

func newRouter(t *testing.T, provider llm.Provider) *Router {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	return New(provider, cat, specialistNames, DefaultThreshold, zerolog.Nop())
}

func TestRouteMultiIntent(t *testing.T) {
	provider := llmtest.New().On(routerMarker, `{
		"specialists": [
			{"specialist": "attendance", "intent": "check me in", "confidence": 0.95},
			{"specialist": "booking", "intent": "book a desk for tomorrow", "confidence": 0.9}
		],
		"is_multi_intent": true
	}`)
	r := newRouter(t, provider)

	result, err := r.Route(context.Background(), "check me in and book a desk for tomorrow", nil, "")
	require.NoError(t, err)
	assert.Equal(t, models.RouteSourceLLM, result.Source)
	assert.True(t, result.IsMultiIntent)
	assert.False(t, result.NeedsClarification)
	assert.Equal(t, "attendance", result.SelectedSpecialist)
	assert.Equal(t, 0.95, result.Confidence)
	require.Len(t, result.SelectedSpecialists, 2)
	assert.Equal(t, "booking", result.SelectedSpecialists[1].Specialist)
	assert.Equal(t, "book a desk for tomorrow", result.SelectedSpecialists[1].Intent)
}

func TestRouteDecisionShapes(t *testing.T) {
	tests := []struct {
		name          string
		reply         string
		specialist    string
		confidence    float64
		multi         bool
		clarification bool
	}{
		{"legacy single selection", `{"specialist": "leave", "confidence": 0.88}`, "leave", 0.88, false, false},
		{"fenced json", "```json\n{\"specialists\":[{\"specialist\":\"it\",\"confidence\":0.9}]}\n```", "it", 0.9, false, false},
		{"confidence clamped", `{"specialists":[{"specialist":"cafeteria","confidence":1.7}]}`, "cafeteria", 1, false, false},
		{"low confidence clarifies", `{"specialists":[{"specialist":"booking","confidence":0.5}]}`, "booking", 0.5, false, true},
		{"general dropped next to a specialist", `{"specialists":[{"specialist":"general","confidence":0.9},{"specialist":"leave","confidence":0.8}]}`, "leave", 0.8, false, false},
		{"duplicates collapse", `{"specialists":[{"specialist":"it","confidence":0.9},{"specialist":"IT","confidence":0.8}],"is_multi_intent":true}`, "it", 0.9, false, false},
		{"unknown names are skipped", `{"specialists":[{"specialist":"payroll","confidence":0.9},{"specialist":"leave","confidence":0.85}]}`, "leave", 0.85, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(t, llmtest.New().On(routerMarker, tt.reply))
			result, err := r.Route(context.Background(), "something", nil, "")
			require.NoError(t, err)
			assert.Equal(t, models.RouteSourceLLM, result.Source)
			assert.Equal(t, tt.specialist, result.SelectedSpecialist)
			assert.Equal(t, tt.confidence, result.Confidence)
			assert.Equal(t, tt.multi, result.IsMultiIntent)
			assert.Equal(t, tt.clarification, result.NeedsClarification)
			if tt.clarification {
				assert.Equal(t, prompts.ClarificationMessage, result.ClarificationMessage)
			}
		})
	}
}

func TestRouteFallsBackToKeywords(t *testing.T) {
	tests := []struct {
		name     string
		provider llm.Provider
	}{
		{"prose instead of json", llmtest.New().On(routerMarker, "Sounds like attendance and booking to me!")},
		{"only unknown specialists", llmtest.New().On(routerMarker, `{"specialists":[{"specialist":"payroll","confidence":0.9}]}`)},
		{"provider failure", &llmtest.Failing{Err: errors.New("context deadline exceeded")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(t, tt.provider)
			result, err := r.Route(context.Background(), "check in and book a desk", nil, "")
			require.NoError(t, err)
			assert.Equal(t, models.RouteSourceKeyword, result.Source)
			assert.True(t, result.IsMultiIntent)
			require.Len(t, result.SelectedSpecialists, 2)
			assert.Equal(t, "attendance", result.SelectedSpecialists[0].Specialist)
			assert.Equal(t, "check in", result.SelectedSpecialists[0].Intent)
			assert.Equal(t, "booking", result.SelectedSpecialists[1].Specialist)
			assert.Equal(t, "book a desk", result.SelectedSpecialists[1].Intent)
			assert.Equal(t, "attendance", result.SelectedSpecialist)
		})
	}
}

func TestKeywordRoute(t *testing.T) {
	r := newRouter(t, llmtest.New())

	tests := []struct {
		utterance     string
		specialists   []string
		greeting      bool
		farewell      bool
		clarification bool
	}{
		{"order a coffee and raise a ticket for my laptop", []string{"cafeteria", "it"}, false, false, false},
		{"I need two days of leave", []string{"leave"}, false, false, false},
		{"show my bookings", []string{"booking"}, false, false, false},
		{"is the team meeting room free", []string{"booking"}, false, false, false},
		{"Hello there!", []string{"general"}, true, false, false},
		{"ok bye", []string{"general"}, false, true, false},
		{"blorp", []string{"general"}, false, false, true},
		{"this is odd", []string{"general"}, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.utterance, func(t *testing.T) {
			result := r.KeywordRoute(tt.utterance)
			var got []string
			for _, s := range result.SelectedSpecialists {
				got = append(got, s.Specialist)
			}
			assert.Equal(t, tt.specialists, got)
			assert.Equal(t, tt.specialists[0], result.SelectedSpecialist)
			assert.Equal(t, tt.greeting, result.IsGreeting)
			assert.Equal(t, tt.farewell, result.IsFarewell)
			assert.Equal(t, tt.clarification, result.NeedsClarification)
			if tt.clarification {
				assert.Equal(t, prompts.ClarificationMessage, result.ClarificationMessage)
				assert.Less(t, result.Confidence, r.Threshold())
			}
		})
	}
}

func TestRouteRateLimitFallback(t *testing.T) {
	reply := `{"specialists":[{"specialist":"leave","confidence":0.9}]}`

	t.Run("secondary succeeds", func(t *testing.T) {
		primary := &llmtest.Failing{Err: fmt.Errorf("%w: primary", llm.ErrRateLimited)}
		secondary := llmtest.New().On(routerMarker, reply)
		r := newRouter(t, llm.NewFallbackProvider(primary, secondary, zerolog.Nop()))

		result, err := r.Route(context.Background(), "apply leave", nil, "")
		require.NoError(t, err)
		assert.Equal(t, "leave", result.SelectedSpecialist)
		assert.Equal(t, 1, primary.Count)
		assert.Equal(t, 1, secondary.CallsMatching(routerMarker))
	})

	t.Run("both rate limited surfaces error", func(t *testing.T) {
		primary := &llmtest.Failing{Err: errors.New("429 Too Many Requests")}
		secondary := &llmtest.Failing{Err: errors.New("rate_limit_error")}
		r := newRouter(t, llm.NewFallbackProvider(primary, secondary, zerolog.Nop()))

		result, err := r.Route(context.Background(), "apply leave", nil, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, llm.ErrRateLimited)
		assert.Nil(t, result)
		assert.Equal(t, 1, primary.Count)
		assert.Equal(t, 1, secondary.Count)
	})
}

func TestRouteSendsRecentHistoryOnly(t *testing.T) {
	provider := llmtest.New().On(routerMarker, `{"specialist":"it","confidence":0.9}`)
	r := newRouter(t, provider)

	var history []models.Message
	for i := 0; i < 10; i++ {
		history = append(history, models.Message{Role: models.RoleUser, Content: fmt.Sprintf("m%d", i)})
	}
	_, err := r.Route(context.Background(), "my vpn is down", history, "it")
	require.NoError(t, err)

	require.Len(t, provider.Calls, 1)
	req := provider.Calls[0]
	require.Len(t, req.Messages, 5)
	assert.Equal(t, "m6", req.Messages[0].Content)
	assert.Equal(t, "my vpn is down", req.Messages[4].Content)
	assert.Equal(t, 0.1, req.Temperature)
	assert.Contains(t, req.SystemPrompt, "currently talking to: it")
}
