package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avvvet/officebuddy/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeGenerator struct {
	got  []llms.MessageContent
	resp *llms.ContentResponse
	err  error
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.got = messages
	return f.resp, f.err
}

func TestLangChainProviderComplete(t *testing.T) {
	gen := &fakeGenerator{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content:        "hello",
		GenerationInfo: map[string]any{"InputTokens": 12, "OutputTokens": 3},
	}}}}
	p := newLangChainProvider(gen, "test-model", time.Second, zerolog.Nop())

	resp, err := p.Complete(context.Background(), &LLMRequest{
		SystemPrompt: "system",
		Messages: []models.Message{
			{Role: models.RoleUser, Content: "hi"},
			{Role: models.RoleAssistant, Content: "hey"},
			{Role: "tool", Content: "ignored"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, 15, resp.Usage.Total())

	require.Len(t, gen.got, 3)
	assert.Equal(t, llms.ChatMessageTypeSystem, gen.got[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, gen.got[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, gen.got[2].Role)
}

func TestLangChainProviderErrors(t *testing.T) {
	t.Run("rate limit is tagged", func(t *testing.T) {
		p := newLangChainProvider(&fakeGenerator{err: errors.New("status 429")}, "m", 0, zerolog.Nop())
		_, err := p.Complete(context.Background(), &LLMRequest{})
		assert.ErrorIs(t, err, ErrRateLimited)
	})

	t.Run("no choices", func(t *testing.T) {
		p := newLangChainProvider(&fakeGenerator{resp: &llms.ContentResponse{}}, "m", 0, zerolog.Nop())
		_, err := p.Complete(context.Background(), &LLMRequest{})
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})
}
