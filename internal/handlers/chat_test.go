package handlers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/avvvet/officebuddy/internal/models"
	"github.com/avvvet/officebuddy/internal/orchestrator"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConversation struct {
	result  *orchestrator.TurnResult
	err     error
	logins  []string
	cleared []string
}

func (f *fakeConversation) Login(ctx context.Context, sessionID string, user models.UserProfile) error {
	f.logins = append(f.logins, sessionID)
	return f.err
}

func (f *fakeConversation) Logout(ctx context.Context, sessionID string) error { return f.err }

func (f *fakeConversation) ClearHistory(ctx context.Context, sessionID string) error {
	f.cleared = append(f.cleared, sessionID)
	return f.err
}

func (f *fakeConversation) HandleMessage(ctx context.Context, sessionID, utterance string) (*orchestrator.TurnResult, error) {
	return f.result, f.err
}

func TestProcessChat(t *testing.T) {
	tests := []struct {
		name       string
		request    models.ChatRequest
		result     *orchestrator.TurnResult
		err        error
		status     string
		errorCode  string
		needsInput bool
	}{
		{"needs input", models.ChatRequest{SessionID: "s", UserMessage: "book a desk"},
			&orchestrator.TurnResult{Reply: "1. DSK-101", NeedsInput: true, Specialist: "booking"}, nil, models.StatusNeedsInfo, "", true},
		{"ready", models.ChatRequest{SessionID: "s", UserMessage: "1"},
			&orchestrator.TurnResult{Reply: "Booked.", Specialist: "booking"}, nil, models.StatusReady, "", false},
		{"missing session", models.ChatRequest{UserMessage: "hi"}, nil, nil, models.StatusError, models.ErrorParseError, false},
		{"missing message", models.ChatRequest{SessionID: "s"}, nil, nil, models.StatusError, models.ErrorParseError, false},
		{"not logged in", models.ChatRequest{SessionID: "s", UserMessage: "hi"}, nil, orchestrator.ErrNotLoggedIn, models.StatusError, models.ErrorNotLoggedIn, false},
		{"timeout", models.ChatRequest{SessionID: "s", UserMessage: "hi"}, nil, fmt.Errorf("save: %w", context.DeadlineExceeded), models.StatusError, models.ErrorLLMTimeout, false},
		{"other failure", models.ChatRequest{SessionID: "s", UserMessage: "hi"}, nil, errors.New("redis down"), models.StatusError, models.ErrorInternal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewChatHandler(&fakeConversation{result: tt.result, err: tt.err}, zerolog.Nop())
			resp := h.ProcessChat(context.Background(), &tt.request)
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, tt.needsInput, resp.NeedsInput)
			assert.NotEmpty(t, resp.Reply)
			if tt.errorCode == "" {
				assert.Nil(t, resp.ErrorCode)
				assert.Equal(t, tt.result.Specialist, resp.Specialist)
				return
			}
			require.NotNil(t, resp.ErrorCode)
			assert.Equal(t, tt.errorCode, *resp.ErrorCode)
			require.NotNil(t, resp.ErrorMessage)
		})
	}
}

func TestSessionRequests(t *testing.T) {
	conv := &fakeConversation{}
	h := NewChatHandler(conv, zerolog.Nop())
	ctx := context.Background()

	resp := h.ProcessLogin(ctx, &models.LoginRequest{SessionID: "s-1", User: models.UserProfile{UserID: "u-1", Name: "Abebe"}})
	assert.Equal(t, models.StatusReady, resp.Status)
	assert.Equal(t, "Welcome, Abebe! How can I help you today?", resp.Reply)
	assert.Equal(t, []string{"s-1"}, conv.logins)

	resp = h.ProcessLogin(ctx, &models.LoginRequest{SessionID: "s-2"})
	assert.Equal(t, models.StatusError, resp.Status)

	resp = h.ProcessClear(ctx, &models.SessionRequest{SessionID: "s-1"})
	assert.Equal(t, models.StatusReady, resp.Status)
	assert.Equal(t, []string{"s-1"}, conv.cleared)

	resp = h.ProcessLogout(ctx, &models.SessionRequest{})
	assert.Equal(t, models.StatusError, resp.Status)

	conv.err = orchestrator.ErrNotLoggedIn
	resp = h.ProcessClear(ctx, &models.SessionRequest{SessionID: "s-9"})
	require.NotNil(t, resp.ErrorCode)
	assert.Equal(t, models.ErrorNotLoggedIn, *resp.ErrorCode)
	assert.Equal(t, "Please log in first.", resp.Reply)
}
