package llm

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// FallbackProvider retries once on a secondary credential/model when the
// primary is rate limited. Any other failure is returned as is.
type FallbackProvider struct {
	primary   Provider
	secondary Provider
	logger    zerolog.Logger

	// OnFallback is called before the secondary attempt, if set
	OnFallback func()
}

// NewFallbackProvider wraps primary; a nil secondary disables the retry
func NewFallbackProvider(primary, secondary Provider, logger zerolog.Logger) *FallbackProvider {
	return &FallbackProvider{
		primary:   primary,
		secondary: secondary,
		logger:    logger.With().Str("component", "llm-fallback").Logger(),
	}
}

func (f *FallbackProvider) Complete(ctx context.Context, request *LLMRequest) (*LLMResponse, error) {
	resp, err := f.primary.Complete(ctx, request)
	if err == nil || f.secondary == nil || !IsRateLimited(err) {
		return resp, err
	}

	f.logger.Warn().Err(err).Msg("⚠️ primary rate limited, trying secondary")
	if f.OnFallback != nil {
		f.OnFallback()
	}

	resp, err2 := f.secondary.Complete(ctx, request)
	if err2 != nil {
		return nil, errors.Join(err, err2)
	}
	return resp, nil
}
