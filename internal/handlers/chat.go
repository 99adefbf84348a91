package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/officebuddy/internal/models"
	"github.com/avvvet/officebuddy/internal/orchestrator"
	"github.com/rs/zerolog"
)

const errorReply = "I'm sorry, I encountered an error processing your request. Please try again."

// Conversation is the orchestrator surface the handler needs
type Conversation interface {
	Login(ctx context.Context, sessionID string, user models.UserProfile) error
	Logout(ctx context.Context, sessionID string) error
	ClearHistory(ctx context.Context, sessionID string) error
	HandleMessage(ctx context.Context, sessionID, utterance string) (*orchestrator.TurnResult, error)
}

// ChatHandler maps transport requests onto the orchestrator and its
// results onto ChatResponse
type ChatHandler struct {
	conv   Conversation
	logger zerolog.Logger
}

func NewChatHandler(conv Conversation, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		conv:   conv,
		logger: logger.With().Str("component", "handler").Logger(),
	}
}

func (h *ChatHandler) ProcessChat(ctx context.Context, request *models.ChatRequest) *models.ChatResponse {
	if err := h.validateChat(request); err != nil {
		return h.createErrorResponse(request.SessionID, models.ErrorParseError, err.Error())
	}

	result, err := h.conv.HandleMessage(ctx, request.SessionID, request.UserMessage)
	if err != nil {
		h.logger.Warn().Err(err).Str("session", request.SessionID).Msg("⚠️ chat failed")
		return h.createErrorResponse(request.SessionID, errorCode(err), err.Error())
	}

	status := models.StatusReady
	if result.NeedsInput {
		status = models.StatusNeedsInfo
	}
	return &models.ChatResponse{
		SessionID:  request.SessionID,
		Status:     status,
		Reply:      result.Reply,
		NeedsInput: result.NeedsInput,
		Specialist: result.Specialist,
	}
}

func (h *ChatHandler) ProcessLogin(ctx context.Context, request *models.LoginRequest) *models.ChatResponse {
	if request.SessionID == "" || request.User.UserID == "" {
		return h.createErrorResponse(request.SessionID, models.ErrorParseError, "session_id and user.user_id are required")
	}
	if err := h.conv.Login(ctx, request.SessionID, request.User); err != nil {
		return h.createErrorResponse(request.SessionID, errorCode(err), err.Error())
	}
	name := request.User.Name
	if name == "" {
		name = "there"
	}
	return &models.ChatResponse{
		SessionID: request.SessionID,
		Status:    models.StatusReady,
		Reply:     fmt.Sprintf("Welcome, %s! How can I help you today?", name),
	}
}

func (h *ChatHandler) ProcessLogout(ctx context.Context, request *models.SessionRequest) *models.ChatResponse {
	if request.SessionID == "" {
		return h.createErrorResponse("", models.ErrorParseError, "session_id is required")
	}
	if err := h.conv.Logout(ctx, request.SessionID); err != nil {
		return h.createErrorResponse(request.SessionID, errorCode(err), err.Error())
	}
	return &models.ChatResponse{SessionID: request.SessionID, Status: models.StatusReady, Reply: "You have been logged out."}
}

func (h *ChatHandler) ProcessClear(ctx context.Context, request *models.SessionRequest) *models.ChatResponse {
	if request.SessionID == "" {
		return h.createErrorResponse("", models.ErrorParseError, "session_id is required")
	}
	if err := h.conv.ClearHistory(ctx, request.SessionID); err != nil {
		return h.createErrorResponse(request.SessionID, errorCode(err), err.Error())
	}
	return &models.ChatResponse{SessionID: request.SessionID, Status: models.StatusReady, Reply: "Conversation cleared."}
}

func (h *ChatHandler) validateChat(request *models.ChatRequest) error {
	if request.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if request.UserMessage == "" {
		return fmt.Errorf("user_message is required")
	}
	return nil
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, orchestrator.ErrNotLoggedIn):
		return models.ErrorNotLoggedIn
	case errors.Is(err, context.DeadlineExceeded):
		return models.ErrorLLMTimeout
	default:
		return models.ErrorInternal
	}
}

func (h *ChatHandler) createErrorResponse(sessionID, code, message string) *models.ChatResponse {
	reply := errorReply
	if code == models.ErrorNotLoggedIn {
		reply = "Please log in first."
	}
	return &models.ChatResponse{
		SessionID:    sessionID,
		Status:       models.StatusError,
		Reply:        reply,
		ErrorCode:    &code,
		ErrorMessage: &message,
	}
}
