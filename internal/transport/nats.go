package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avvvet/officebuddy/internal/config"
	"github.com/avvvet/officebuddy/internal/models"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Handler is the request surface served over NATS
type Handler interface {
	ProcessChat(ctx context.Context, request *models.ChatRequest) *models.ChatResponse
	ProcessLogin(ctx context.Context, request *models.LoginRequest) *models.ChatResponse
	ProcessLogout(ctx context.Context, request *models.SessionRequest) *models.ChatResponse
	ProcessClear(ctx context.Context, request *models.SessionRequest) *models.ChatResponse
}

type NATSTransport struct {
	conn    *nats.Conn
	config  *config.Config
	handler Handler
	logger  zerolog.Logger
	subs    []*nats.Subscription
}

// Connect dials NATS with reconnects enabled
func Connect(cfg *config.Config, logger zerolog.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(cfg.NatsURL,
		nats.Name(cfg.ServiceName),
		nats.Timeout(cfg.NatsTimeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1), // Infinite reconnects
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	logger.Info().Str("url", cfg.NatsURL).Msg("📡 connected to NATS")
	return conn, nil
}

func NewNATSTransport(conn *nats.Conn, cfg *config.Config, handler Handler, logger zerolog.Logger) *NATSTransport {
	return &NATSTransport{
		conn:    conn,
		config:  cfg,
		handler: handler,
		logger:  logger.With().Str("component", "nats").Logger(),
	}
}

// Conn exposes the connection for other publishers such as the audit sink
func (nt *NATSTransport) Conn() *nats.Conn {
	return nt.conn
}

func (nt *NATSTransport) Start() error {
	routes := map[string]nats.MsgHandler{
		nt.config.Subject("chat"):   nt.handleChat,
		nt.config.Subject("login"):  nt.handleLogin,
		nt.config.Subject("logout"): nt.handleLogout,
		nt.config.Subject("clear"):  nt.handleClear,
	}
	for subject, h := range routes {
		sub, err := nt.conn.Subscribe(subject, h)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		nt.subs = append(nt.subs, sub)
		nt.logger.Info().Str("subject", subject).Msg("👂 subscribed")
	}
	return nil
}

func (nt *NATSTransport) handleChat(msg *nats.Msg) {
	var request models.ChatRequest
	if err := json.Unmarshal(msg.Data, &request); err != nil {
		nt.logger.Warn().Err(err).Msg("⚠️ invalid chat request")
		nt.sendErrorResponse(msg, request.SessionID, models.ErrorParseError, "Invalid request format")
		return
	}

	ctx, cancel := nt.requestContext()
	defer cancel()
	nt.sendResponse(msg, nt.handler.ProcessChat(ctx, &request))
}

func (nt *NATSTransport) handleLogin(msg *nats.Msg) {
	var request models.LoginRequest
	if err := json.Unmarshal(msg.Data, &request); err != nil {
		nt.sendErrorResponse(msg, request.SessionID, models.ErrorParseError, "Invalid request format")
		return
	}

	ctx, cancel := nt.requestContext()
	defer cancel()
	nt.sendResponse(msg, nt.handler.ProcessLogin(ctx, &request))
}

func (nt *NATSTransport) handleLogout(msg *nats.Msg) {
	nt.handleSession(msg, nt.handler.ProcessLogout)
}

func (nt *NATSTransport) handleClear(msg *nats.Msg) {
	nt.handleSession(msg, nt.handler.ProcessClear)
}

func (nt *NATSTransport) handleSession(msg *nats.Msg, process func(context.Context, *models.SessionRequest) *models.ChatResponse) {
	var request models.SessionRequest
	if err := json.Unmarshal(msg.Data, &request); err != nil {
		nt.sendErrorResponse(msg, request.SessionID, models.ErrorParseError, "Invalid request format")
		return
	}

	ctx, cancel := nt.requestContext()
	defer cancel()
	nt.sendResponse(msg, process(ctx, &request))
}

// requestContext bounds one request by the NATS timeout
func (nt *NATSTransport) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), nt.config.NatsTimeout)
}

func (nt *NATSTransport) sendResponse(msg *nats.Msg, response *models.ChatResponse) {
	responseData, err := json.Marshal(response)
	if err != nil {
		nt.logger.Error().Err(err).Msg("❌ failed to marshal response")
		return
	}
	if err := msg.Respond(responseData); err != nil {
		nt.logger.Error().Err(err).Str("session", response.SessionID).Msg("❌ failed to send response")
		return
	}
	nt.logger.Debug().Str("session", response.SessionID).Str("status", response.Status).Msg("response sent")
}

func (nt *NATSTransport) sendErrorResponse(msg *nats.Msg, sessionID, errorCode, errorMessage string) {
	nt.sendResponse(msg, &models.ChatResponse{
		SessionID:    sessionID,
		Status:       models.StatusError,
		Reply:        "I'm sorry, I encountered an error processing your request. Please try again.",
		ErrorCode:    &errorCode,
		ErrorMessage: &errorMessage,
	})
}

func (nt *NATSTransport) Close() error {
	for _, sub := range nt.subs {
		_ = sub.Unsubscribe()
	}
	nt.subs = nil
	if nt.conn != nil {
		if err := nt.conn.Drain(); err != nil {
			nt.conn.Close()
		}
		nt.logger.Info().Msg("NATS connection closed")
	}
	return nil
}
