package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pulseboard/pulseboard/internal/feeds"
)

func TestCompleteSendsUserTurns(t *testing.T) {
	var got completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("auth header = %q", auth)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"choices":[{"message":{"content":"hi there"}}]}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "test-key"})
	c.BaseURL = srv.URL

	reply, err := c.Complete(context.Background(), []string{"hello", "", "  ", "how are you"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != "hi there" {
		t.Errorf("reply = %q", reply)
	}

	if got.Model != "gpt-3.5-turbo" {
		t.Errorf("model = %q, want default", got.Model)
	}
	if got.MaxTokens != 333 {
		t.Errorf("max_tokens = %d, want default 333", got.MaxTokens)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("got %d messages, want blanks dropped", len(got.Messages))
	}
	for _, m := range got.Messages {
		if m.Role != "user" {
			t.Errorf("role = %q, want user", m.Role)
		}
	}
}

func TestCompleteMissingKey(t *testing.T) {
	c := New(Config{})
	_, err := c.Complete(context.Background(), []string{"hello"})
	if !feeds.IsConfiguration(err) {
		t.Errorf("got %v, want ConfigurationError", err)
	}
}

func TestCompleteEmptyConversation(t *testing.T) {
	c := New(Config{APIKey: "test-key"})
	_, err := c.Complete(context.Background(), []string{"", "   "})
	if !feeds.IsInvalidParameter(err) {
		t.Errorf("got %v, want InvalidParameterError", err)
	}
}

func TestCompleteRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(Config{APIKey: "test-key"})
	c.BaseURL = srv.URL

	_, err := c.Complete(context.Background(), []string{"hello"})
	if !feeds.IsRateLimited(err) {
		t.Errorf("got %v, want RateLimitedError", err)
	}
}

func TestSessionBudget(t *testing.T) {
	s := NewSession(3, 10)

	if err := s.Admit("one two three"); err != nil {
		t.Fatalf("first message: %v", err)
	}
	if err := s.Admit("four five six"); err != nil {
		t.Fatalf("second message: %v", err)
	}

	// seven words would overspend the 10-token budget
	if err := s.Admit("a b c d e f g"); err != ErrBudgetExhausted {
		t.Errorf("got %v, want token budget rejection", err)
	}

	if err := s.Admit("ok"); err != nil {
		t.Fatalf("third message within budget: %v", err)
	}
	if err := s.Admit("again"); err != ErrBudgetExhausted {
		t.Errorf("got %v, want message count rejection", err)
	}

	msgs, tokens := s.Remaining()
	if msgs != 0 || tokens != 3 {
		t.Errorf("remaining = %d msgs / %d tokens, want 0/3", msgs, tokens)
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"hello", 1},
		{"  spaced   out words ", 3},
		{strings.Repeat("word ", 999), 999},
	}

	for _, tt := range tests {
		if got := EstimateTokens(tt.in); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
