// Package llmtest provides a scripted Inferer for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/dtnitsch/llm-event-parser/pkg/llm"
)

// Scripted returns its replies in order and records every request.
type Scripted struct {
	mu       sync.Mutex
	replies  []string
	Requests []llm.Request
}

// New creates a Scripted inferer returning texts in order.
func New(texts ...string) *Scripted {
	return &Scripted{replies: texts}
}

func (s *Scripted) Infer(ctx context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Requests = append(s.Requests, req)
	if len(s.replies) == 0 {
		return "", fmt.Errorf("llmtest: no scripted reply for request %d", len(s.Requests))
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

// Calls returns the number of requests seen.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Requests)
}
