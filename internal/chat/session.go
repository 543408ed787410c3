package chat

import (
	"errors"
	"strings"
	"sync"
)

// ErrBudgetExhausted means the session has spent its message or token
// allowance; the assistant box goes quiet until a new session starts.
var ErrBudgetExhausted = errors.New("chat session budget exhausted")

// Session tracks one dashboard visit's assistant usage against a message
// count and an estimated token budget
type Session struct {
	mu          sync.Mutex
	messages    int
	tokens      int
	maxMessages int
	tokenBudget int
}

// NewSession creates a session with the given allowances
func NewSession(maxMessages, tokenBudget int) *Session {
	return &Session{maxMessages: maxMessages, tokenBudget: tokenBudget}
}

// EstimateTokens approximates token usage by whitespace-split word count
func EstimateTokens(s string) int {
	return len(strings.Fields(s))
}

// Admit charges one user message against the budget. The message that
// crosses either limit is rejected.
func (s *Session) Admit(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cost := EstimateTokens(message)
	if s.messages+1 > s.maxMessages || s.tokens+cost > s.tokenBudget {
		return ErrBudgetExhausted
	}

	s.messages++
	s.tokens += cost
	return nil
}

// Remaining reports how many messages and estimated tokens are left
func (s *Session) Remaining() (messages, tokens int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxMessages - s.messages, s.tokenBudget - s.tokens
}
