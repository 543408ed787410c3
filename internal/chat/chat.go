package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pulseboard/pulseboard/internal/feeds"
)

// Config holds the chat-completion provider settings
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Client calls the chat-completion API for the dashboard's assistant box
type Client struct {
	// BaseURL is the completions endpoint; tests override it
	BaseURL string

	cfg    Config
	client *http.Client
}

// New creates a chat client
func New(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = "gpt-3.5-turbo"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 333
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: "https://api.openai.com/v1/chat/completions",
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type completionRequest struct {
	Model     string              `json:"model"`
	Messages  []completionMessage `json:"messages"`
	MaxTokens int                 `json:"max_tokens"`
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the conversation, every entry as a user turn, and returns
// the assistant's reply
func (c *Client) Complete(ctx context.Context, messages []string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", &feeds.ConfigurationError{Missing: "OPENAI_API_KEY"}
	}

	msgs := make([]completionMessage, 0, len(messages))
	for _, m := range messages {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		msgs = append(msgs, completionMessage{Role: "user", Content: m})
	}
	if len(msgs) == 0 {
		return "", &feeds.InvalidParameterError{Param: "messages", Value: "", Allowed: "at least one non-empty message"}
	}

	body, _ := json.Marshal(completionRequest{
		Model:     c.cfg.Model,
		Messages:  msgs,
		MaxTokens: c.cfg.MaxTokens,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &feeds.RateLimitedError{Host: "chat provider"}
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("chat API %d: %s", resp.StatusCode, string(b))
	}

	var cr completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("empty chat response")
	}
	return cr.Choices[0].Message.Content, nil
}
