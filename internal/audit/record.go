// Package audit writes one record per conversation turn to best-effort
// sinks. Writing never blocks or fails a turn.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/avvvet/officebuddy/internal/models"
	"github.com/google/uuid"
)

// APICall is one backend call made during a turn
type APICall struct {
	OperationID string         `json:"operation_id"`
	Method      string         `json:"method"`
	Endpoint    string         `json:"endpoint"`
	Payload     map[string]any `json:"payload,omitempty"`
	Response    any            `json:"response,omitempty"`
	Status      int            `json:"status"`
	Success     bool           `json:"success"`
}

// Record is the audit entry for one turn
type Record struct {
	ID          string                `json:"id"`
	SessionID   string                `json:"session_id"`
	UserID      string                `json:"user_id"`
	Timestamp   time.Time             `json:"timestamp"`
	Utterance   string                `json:"utterance"`
	Reply       string                `json:"reply"`
	Routing     *models.RoutingResult `json:"routing,omitempty"`
	Specialists []string              `json:"specialists,omitempty"`
	Actions     []string              `json:"actions,omitempty"`
	APICalls    []APICall             `json:"api_calls,omitempty"`
	Success     bool                  `json:"success"`
	LatencyMs   int64                 `json:"latency_ms"`
}

// NewRecord stamps a record with an id and the current time
func NewRecord(sessionID, userID, utterance string) *Record {
	return &Record{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Utterance: utterance,
	}
}

// Sink persists audit records
type Sink interface {
	Write(ctx context.Context, rec *Record) error
}

// MultiSink writes to every sink and joins their errors
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, rec *Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards records
type Nop struct{}

func (Nop) Write(context.Context, *Record) error { return nil }
