package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avvvet/officebuddy/internal/models"
	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory"
)

// Manager owns session state: the durable ConversationState in the Store
// and a LangChainGo buffer per live session used for prompt history.
type Manager struct {
	store  Store
	logger zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*memory.ConversationBuffer // In-memory cache
}

// NewManager creates a new memory manager
func NewManager(store Store, logger zerolog.Logger) *Manager {
	return &Manager{
		store:    store,
		logger:   logger.With().Str("component", "memory").Logger(),
		sessions: make(map[string]*memory.ConversationBuffer),
	}
}

// Create starts a fresh session for an authenticated user, replacing any
// previous state under the same id
func (m *Manager) Create(ctx context.Context, sessionID string, user models.UserProfile) (*ConversationState, error) {
	now := time.Now()
	state := &ConversationState{
		SessionID: sessionID,
		User:      user,
		Messages:  []models.Message{},
		Metadata: Metadata{
			StartedAt:    now,
			LastActivity: now,
		},
	}
	if err := m.store.SaveSession(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	m.mu.Lock()
	m.sessions[sessionID] = memory.NewConversationBuffer()
	m.mu.Unlock()

	m.logger.Info().Str("session", sessionID).Str("user", user.UserID).Msg("🆕 session created")
	return state, nil
}

// Load returns the stored state and makes sure its history buffer is cached
func (m *Manager) Load(ctx context.Context, sessionID string) (*ConversationState, error) {
	state, err := m.store.LoadSession(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		m.evict(sessionID)
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if _, err := m.buffer(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// buffer gets or rebuilds the LangChainGo buffer for a session
func (m *Manager) buffer(ctx context.Context, state *ConversationState) (*memory.ConversationBuffer, error) {
	m.mu.RLock()
	mem, exists := m.sessions[state.SessionID]
	m.mu.RUnlock()
	if exists {
		return mem, nil
	}

	mem = memory.NewConversationBuffer()
	for _, msg := range state.Messages {
		var chatMsg llms.ChatMessage
		switch msg.Role {
		case models.RoleUser:
			chatMsg = llms.HumanChatMessage{Content: msg.Content}
		case models.RoleAssistant:
			chatMsg = llms.AIChatMessage{Content: msg.Content}
		case models.RoleSystem:
			chatMsg = llms.SystemChatMessage{Content: msg.Content}
		default:
			m.logger.Warn().Str("role", msg.Role).Msg("⚠️ unknown message role, skipping")
			continue
		}
		if err := mem.ChatHistory.AddMessage(ctx, chatMsg); err != nil {
			return nil, fmt.Errorf("failed to add message to memory: %w", err)
		}
	}

	m.mu.Lock()
	if cached, ok := m.sessions[state.SessionID]; ok {
		mem = cached
	} else {
		m.sessions[state.SessionID] = mem
	}
	m.mu.Unlock()

	m.logger.Debug().Str("session", state.SessionID).Int("messages", len(state.Messages)).Msg("📚 history loaded")
	return mem, nil
}

// AppendTurn records one user/assistant exchange on the state and its buffer.
// The state still has to be saved.
func (m *Manager) AppendTurn(ctx context.Context, state *ConversationState, userText, assistantText string) error {
	now := time.Now()
	state.Messages = append(state.Messages,
		models.Message{Role: models.RoleUser, Content: userText, Timestamp: now},
		models.Message{Role: models.RoleAssistant, Content: assistantText, Timestamp: now},
	)
	state.Metadata.MessageCount += 2
	state.Metadata.LastActivity = now

	mem, err := m.buffer(ctx, state)
	if err != nil {
		return err
	}
	if err := mem.ChatHistory.AddUserMessage(ctx, userText); err != nil {
		return fmt.Errorf("failed to add user message to memory: %w", err)
	}
	if err := mem.ChatHistory.AddAIMessage(ctx, assistantText); err != nil {
		return fmt.Errorf("failed to add AI message to memory: %w", err)
	}
	return nil
}

// Save writes the state through to the store
func (m *Manager) Save(ctx context.Context, state *ConversationState) error {
	if err := m.store.SaveSession(ctx, state); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// RecentHistory returns the last n messages of the cached buffer
func (m *Manager) RecentHistory(ctx context.Context, state *ConversationState, n int) ([]models.Message, error) {
	mem, err := m.buffer(ctx, state)
	if err != nil {
		return nil, err
	}
	messages, err := mem.ChatHistory.Messages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	if n > 0 && len(messages) > n {
		messages = messages[len(messages)-n:]
	}

	out := make([]models.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.GetType() {
		case llms.ChatMessageTypeHuman:
			out = append(out, models.Message{Role: models.RoleUser, Content: msg.GetContent()})
		case llms.ChatMessageTypeAI:
			out = append(out, models.Message{Role: models.RoleAssistant, Content: msg.GetContent()})
		case llms.ChatMessageTypeSystem:
			out = append(out, models.Message{Role: models.RoleSystem, Content: msg.GetContent()})
		}
	}
	return out, nil
}

// ClearHistory wipes transcript and pending action; the user stays logged in
func (m *Manager) ClearHistory(ctx context.Context, state *ConversationState) error {
	state.Messages = []models.Message{}
	state.Pending = nil
	state.Specialist = ""
	state.Metadata.LastActivity = time.Now()

	m.mu.Lock()
	delete(m.sessions, state.SessionID)
	m.mu.Unlock()

	if err := m.Save(ctx, state); err != nil {
		return err
	}
	m.logger.Info().Str("session", state.SessionID).Msg("🧹 history cleared")
	return nil
}

// End removes a session from both cache and store
func (m *Manager) End(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if err := m.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	m.logger.Info().Str("session", sessionID).Msg("🗑️ session ended")
	return nil
}

// Touch refreshes the session TTL
func (m *Manager) Touch(ctx context.Context, sessionID string) error {
	err := m.store.UpdateActivity(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

// evict drops the cached buffer of a session that no longer exists
func (m *Manager) evict(sessionID string) {
	m.mu.Lock()
	_, cached := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	if cached {
		m.logger.Debug().Str("session", sessionID).Msg("⌛ expired session evicted")
	}
}

// Prune evicts every cached session the store no longer holds, such as
// sessions that expired by TTL without another turn. It returns the
// evicted ids.
func (m *Manager) Prune(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	var evicted []string
	for _, id := range ids {
		exists, err := m.store.SessionExists(ctx, id)
		if err != nil {
			return evicted, fmt.Errorf("failed to check session: %w", err)
		}
		if !exists {
			m.evict(id)
			evicted = append(evicted, id)
		}
	}
	if len(evicted) > 0 {
		m.logger.Info().Int("evicted", len(evicted)).Msg("🧹 expired sessions pruned")
	}
	return evicted, nil
}

// GetActiveSessionCount returns the number of cached sessions
func (m *Manager) GetActiveSessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close closes the underlying store
func (m *Manager) Close() error {
	if closer, ok := m.store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
