package memory

import (
	"context"
	"errors"
	"time"

	"github.com/avvvet/officebuddy/internal/models"
)

// ErrSessionNotFound is returned when a session was never created or expired
var ErrSessionNotFound = errors.New("session not found")

// ConversationState is everything the orchestrator knows about one session
type ConversationState struct {
	SessionID  string                `json:"session_id"`
	User       models.UserProfile    `json:"user"`
	Messages   []models.Message      `json:"messages"`
	Specialist string                `json:"specialist,omitempty"` // currently assigned, empty when none
	Pending    *models.PendingAction `json:"pending,omitempty"`
	Metadata   Metadata              `json:"metadata"`
}

// Metadata contains session information
type Metadata struct {
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"` // monotonic, survives history clears
}

// HasPending reports whether a slot-filling thread is open
func (s *ConversationState) HasPending() bool {
	return s.Pending != nil
}

// Store defines the interface for conversation storage
// This allows us to swap between Redis and in-memory
type Store interface {
	// LoadSession returns ErrSessionNotFound for unknown sessions
	LoadSession(ctx context.Context, sessionID string) (*ConversationState, error)

	// SaveSession writes the whole state and refreshes its TTL
	SaveSession(ctx context.Context, state *ConversationState) error

	// DeleteSession removes a session from storage
	DeleteSession(ctx context.Context, sessionID string) error

	// SessionExists checks if a session exists
	SessionExists(ctx context.Context, sessionID string) (bool, error)

	// UpdateActivity refreshes the TTL without rewriting the state
	UpdateActivity(ctx context.Context, sessionID string) error
}
