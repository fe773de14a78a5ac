// Package llm talks to an OpenAI-compatible chat completions endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/orallm/voicebot/internal/logging"
)

var (
	// ErrPermanent marks 4xx-style failures that a retry will not fix.
	ErrPermanent = errors.New("llm: permanent error")
	// ErrTransient marks network failures and 5xx/429 responses.
	ErrTransient = errors.New("llm: transient error")
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client calls the chat completions API. When FallbackModel is set, a
// transient failure of the primary model is retried once on the fallback.
type Client struct {
	BaseURL       string
	APIKey        string
	Model         string
	FallbackModel string
	HTTP          *http.Client
}

// New returns a client for the given endpoint.
func New(baseURL, apiKey, model, fallbackModel string) *Client {
	return &Client{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		APIKey:        apiKey,
		Model:         model,
		FallbackModel: fallbackModel,
		HTTP:          &http.Client{Timeout: 60 * time.Second},
	}
}

// Chat sends the messages and returns the assistant's reply text.
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	content, err := c.complete(ctx, c.Model, messages)
	if err == nil {
		return content, nil
	}
	if errors.Is(err, ErrTransient) && c.FallbackModel != "" && c.FallbackModel != c.Model {
		logging.Warnw("llm: primary model failed, trying fallback", "model", c.Model, "fallback", c.FallbackModel, "err", err)
		time.Sleep(250 * time.Millisecond)
		return c.complete(ctx, c.FallbackModel, messages)
	}
	return "", err
}

func (c *Client) complete(ctx context.Context, model string, messages []Message) (string, error) {
	payload := map[string]interface{}{
		"messages": messages,
		"stream":   false,
	}
	if model != "" {
		payload["model"] = model
	}
	body, _ := json.Marshal(payload)

	url := fmt.Sprintf("%s/chat/completions", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPermanent, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var out struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", fmt.Errorf("%w: decode: %v", ErrTransient, err)
		}
		if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
			return "", fmt.Errorf("%w: empty completion", ErrPermanent)
		}
		return strings.TrimSpace(out.Choices[0].Message.Content), nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode)
	default:
		return "", fmt.Errorf("%w: status %d", ErrPermanent, resp.StatusCode)
	}
}
