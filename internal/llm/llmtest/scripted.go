// Package llmtest provides a scripted completion provider for tests.
package llmtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/avvvet/officebuddy/internal/llm"
)

// ErrNoRule is returned when no rule matches a request
var ErrNoRule = errors.New("llmtest: no rule matched")

// Rule answers requests whose system prompt contains Marker
type Rule struct {
	Marker  string
	Reply   func(req *llm.LLMRequest) (string, error)
	Replies []string // consumed in order when Reply is nil; last one repeats
	calls   int
}

// Scripted is a deterministic llm.Provider
type Scripted struct {
	mu    sync.Mutex
	rules []*Rule
	Calls []*llm.LLMRequest
}

// New builds a provider from rules, matched in order
func New(rules ...*Rule) *Scripted {
	return &Scripted{rules: rules}
}

// On adds a rule that always answers reply for prompts containing marker
func (s *Scripted) On(marker string, replies ...string) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, &Rule{Marker: marker, Replies: replies})
	return s
}

// OnFunc adds a rule with a reply function
func (s *Scripted) OnFunc(marker string, fn func(req *llm.LLMRequest) (string, error)) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, &Rule{Marker: marker, Reply: fn})
	return s
}

func (s *Scripted) Complete(ctx context.Context, req *llm.LLMRequest) (*llm.LLMResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, req)

	for _, rule := range s.rules {
		if !strings.Contains(req.SystemPrompt, rule.Marker) {
			continue
		}
		if rule.Reply != nil {
			content, err := rule.Reply(req)
			if err != nil {
				return nil, err
			}
			return &llm.LLMResponse{Content: content, Model: "scripted"}, nil
		}
		if len(rule.Replies) == 0 {
			return nil, ErrNoRule
		}
		idx := rule.calls
		if idx >= len(rule.Replies) {
			idx = len(rule.Replies) - 1
		}
		rule.calls++
		return &llm.LLMResponse{Content: rule.Replies[idx], Model: "scripted"}, nil
	}
	return nil, ErrNoRule
}

// CallsMatching counts recorded requests whose system prompt contains marker
func (s *Scripted) CallsMatching(marker string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.Calls {
		if strings.Contains(c.SystemPrompt, marker) {
			n++
		}
	}
	return n
}

// Failing always returns Err and counts calls
type Failing struct {
	mu    sync.Mutex
	Err   error
	Count int
}

func (f *Failing) Complete(ctx context.Context, req *llm.LLMRequest) (*llm.LLMResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Count++
	return nil, f.Err
}
