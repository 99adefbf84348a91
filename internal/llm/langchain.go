package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/avvvet/officebuddy/internal/models"
	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
)

// contentGenerator is the subset of llms.Model the provider needs
type contentGenerator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// LangChainProvider sends completions through a langchaingo model
type LangChainProvider struct {
	model   contentGenerator
	name    string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewAnthropicProvider creates a provider backed by the langchaingo Anthropic client
func NewAnthropicProvider(apiKey, model string, timeout time.Duration, logger zerolog.Logger) (*LangChainProvider, error) {
	client, err := anthropic.New(
		anthropic.WithToken(apiKey),
		anthropic.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create anthropic client: %w", err)
	}
	return newLangChainProvider(client, model, timeout, logger), nil
}

func newLangChainProvider(model contentGenerator, name string, timeout time.Duration, logger zerolog.Logger) *LangChainProvider {
	return &LangChainProvider{
		model:   model,
		name:    name,
		timeout: timeout,
		logger:  logger.With().Str("component", "llm").Str("model", name).Logger(),
	}
}

// Complete runs one blocking completion bounded by the provider timeout
func (p *LangChainProvider) Complete(ctx context.Context, request *LLMRequest) (*LLMResponse, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	options := []llms.CallOption{llms.WithTemperature(request.Temperature)}
	if request.MaxTokens > 0 {
		options = append(options, llms.WithMaxTokens(request.MaxTokens))
	}

	start := time.Now()
	resp, err := p.model.GenerateContent(ctx, toMessageContent(request), options...)
	if err != nil {
		if IsRateLimited(err) {
			return nil, fmt.Errorf("%w: %s: %v", ErrRateLimited, p.name, err)
		}
		return nil, fmt.Errorf("completion failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	choice := resp.Choices[0]
	usage := &Usage{
		InputTokens:  intFromInfo(choice.GenerationInfo, "InputTokens"),
		OutputTokens: intFromInfo(choice.GenerationInfo, "OutputTokens"),
	}
	p.logger.Debug().
		Dur("latency", time.Since(start)).
		Int("tokens", usage.Total()).
		Msg("completion done")

	return &LLMResponse{Content: choice.Content, Model: p.name, Usage: usage}, nil
}

func toMessageContent(request *LLMRequest) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(request.Messages)+1)
	if request.SystemPrompt != "" {
		out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, request.SystemPrompt))
	}
	for _, msg := range request.Messages {
		switch msg.Role {
		case models.RoleUser:
			out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, msg.Content))
		case models.RoleAssistant:
			out = append(out, llms.TextParts(llms.ChatMessageTypeAI, msg.Content))
		case models.RoleSystem:
			out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, msg.Content))
		}
	}
	return out
}

func intFromInfo(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
