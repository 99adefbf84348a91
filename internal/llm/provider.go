package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/avvvet/officebuddy/internal/models"
)

var (
	// ErrRateLimited marks a rate-limit-class failure from the provider
	ErrRateLimited = errors.New("llm: rate limited")

	// ErrEmptyResponse is returned when the provider produced no choices
	ErrEmptyResponse = errors.New("llm: empty response")
)

// Provider defines the interface for completion providers
type Provider interface {
	Complete(ctx context.Context, request *LLMRequest) (*LLMResponse, error)
}

// LLMRequest represents the structured request to LLM
type LLMRequest struct {
	SystemPrompt string
	Messages     []models.Message
	MaxTokens    int
	Temperature  float64
}

// LLMResponse represents the raw response from LLM
type LLMResponse struct {
	Content string
	Model   string
	Usage   *Usage
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Total returns input plus output tokens
func (u *Usage) Total() int {
	if u == nil {
		return 0
	}
	return u.InputTokens + u.OutputTokens
}

// IsRateLimited reports whether err is a rate-limit-class failure
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "rate limit", "rate_limit", "too many requests"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
