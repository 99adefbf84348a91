// Package specialist implements the per-domain action planner. Every
// domain runs the same decide/resolve/execute pipeline; a Specialist only
// supplies data: its slice of the operation catalogue and its guidance.
package specialist

import (
	"fmt"
	"time"

	"github.com/avvvet/officebuddy/internal/catalog"
	"github.com/avvvet/officebuddy/internal/models"
)

// Specialist is one domain-scoped decision unit
type Specialist struct {
	Name        string
	Description string
	Domain      *catalog.Domain
}

var definitions = []struct {
	name        string
	description string
}{
	{"attendance", "You help employees check in, check out and review their attendance."},
	{"leave", "You help employees check leave balances, apply for leave and cancel leave requests."},
	{"booking", "You help employees book desks and conference rooms and manage their bookings."},
	{"cafeteria", "You help employees browse the cafeteria menu and place food orders."},
	{"it", "You help employees raise and track IT support tickets and see their assigned assets."},
}

// Names lists the specialists in routing order
func Names() []string {
	out := make([]string, 0, len(definitions))
	for _, d := range definitions {
		out = append(out, d.name)
	}
	return out
}

// Build binds every specialist to its catalogue domain
func Build(cat *catalog.Catalog) (map[string]*Specialist, error) {
	out := make(map[string]*Specialist, len(definitions))
	for _, d := range definitions {
		domain, ok := cat.GetDomain(d.name)
		if !ok {
			return nil, fmt.Errorf("catalog has no domain for specialist %q", d.name)
		}
		out[d.name] = &Specialist{Name: d.name, Description: d.description, Domain: domain}
	}
	return out, nil
}

// Owns reports whether an operation belongs to this specialist's domain
func (s *Specialist) Owns(op *catalog.Operation) bool {
	return op != nil && s.Domain != nil && op.Domain == s.Domain.Name
}

// Turn is the read-only input of one specialist run
type Turn struct {
	SessionID string
	User      models.UserProfile
	Utterance string
	History   []models.Message
	Pending   *models.PendingAction
	Now       time.Time
}

// CallRecord is one backend call made during the turn, kept for audit
type CallRecord struct {
	OperationID string         `json:"operation_id"`
	Method      string         `json:"method"`
	Endpoint    string         `json:"endpoint"`
	Payload     map[string]any `json:"payload,omitempty"`
	Response    any            `json:"response,omitempty"`
	Status      int            `json:"status"`
	Success     bool           `json:"success"`
}

// Result is what a specialist hands back to the orchestrator. Specialists
// never write session state; the orchestrator applies Pending.
type Result struct {
	Success       bool
	Message       string
	NeedsFollowup bool
	Pending       *models.PendingAction
	HandoffTo     string
	Action        *models.AgentAction
	Calls         []CallRecord
	SideEffects   string
}
