package llm_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/avvvet/officebuddy/internal/llm"
	"github.com/avvvet/officebuddy/internal/llm/llmtest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackProvider(t *testing.T) {
	ctx := context.Background()
	req := &llm.LLMRequest{SystemPrompt: "route this"}

	t.Run("rate limit falls back exactly once", func(t *testing.T) {
		primary := &llmtest.Failing{Err: fmt.Errorf("%w: primary", llm.ErrRateLimited)}
		secondary := llmtest.New().On("route", "ok")
		fallbacks := 0

		p := llm.NewFallbackProvider(primary, secondary, zerolog.Nop())
		p.OnFallback = func() { fallbacks++ }

		resp, err := p.Complete(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Content)
		assert.Equal(t, 1, primary.Count)
		assert.Len(t, secondary.Calls, 1)
		assert.Equal(t, 1, fallbacks)
	})

	t.Run("secondary also rate limited surfaces error", func(t *testing.T) {
		primary := &llmtest.Failing{Err: errors.New("status 429 too many requests")}
		secondary := &llmtest.Failing{Err: errors.New("rate_limit_error")}

		p := llm.NewFallbackProvider(primary, secondary, zerolog.Nop())
		_, err := p.Complete(ctx, req)
		require.Error(t, err)
		assert.True(t, llm.IsRateLimited(err))
		assert.Equal(t, 1, primary.Count)
		assert.Equal(t, 1, secondary.Count)
	})

	t.Run("other failures are not retried", func(t *testing.T) {
		primary := &llmtest.Failing{Err: errors.New("connection refused")}
		secondary := &llmtest.Failing{}

		p := llm.NewFallbackProvider(primary, secondary, zerolog.Nop())
		_, err := p.Complete(ctx, req)
		require.Error(t, err)
		assert.Equal(t, 0, secondary.Count)
	})
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, llm.IsRateLimited(llm.ErrRateLimited))
	assert.True(t, llm.IsRateLimited(errors.New("API returned unexpected status code: 429")))
	assert.False(t, llm.IsRateLimited(errors.New("timeout")))
	assert.False(t, llm.IsRateLimited(nil))
}
