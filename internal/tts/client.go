// Package tts synthesizes speech with a VOICEVOX-compatible engine.
//
// Synthesis is two requests: POST /audio_query builds the synthesis
// parameters for the text, then POST /synthesis renders them to WAV.
package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrSynthesisFailed is returned for any engine failure. Synthesis is not
// retried; the turn is reported failed instead.
var ErrSynthesisFailed = errors.New("tts: synthesis failed")

// Client talks to the engine.
type Client struct {
	BaseURL   string
	SpeakerID int
	Timeout   time.Duration
	HTTP      *http.Client
}

// New returns a client for the engine at baseURL using the given speaker.
func New(baseURL string, speakerID int, timeout time.Duration) *Client {
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		SpeakerID: speakerID,
		Timeout:   timeout,
		HTTP:      &http.Client{Timeout: timeout},
	}
}

// Synthesize renders text to WAV bytes.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", ErrSynthesisFailed)
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	query, err := c.audioQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	return c.synthesis(ctx, query)
}

func (c *Client) audioQuery(ctx context.Context, text string) ([]byte, error) {
	q := url.Values{}
	q.Set("speaker", strconv.Itoa(c.SpeakerID))
	q.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/audio_query?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build query request: %v", ErrSynthesisFailed, err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: audio_query: %v", ErrSynthesisFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: audio_query status %d", ErrSynthesisFailed, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read query: %v", ErrSynthesisFailed, err)
	}
	return body, nil
}

func (c *Client) synthesis(ctx context.Context, query []byte) ([]byte, error) {
	q := url.Values{}
	q.Set("speaker", strconv.Itoa(c.SpeakerID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/synthesis?"+q.Encode(), bytes.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("%w: build synthesis request: %v", ErrSynthesisFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: synthesis: %v", ErrSynthesisFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: synthesis status %d", ErrSynthesisFailed, resp.StatusCode)
	}
	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read synthesis: %v", ErrSynthesisFailed, err)
	}
	if len(wav) == 0 {
		return nil, fmt.Errorf("%w: empty audio", ErrSynthesisFailed)
	}
	return wav, nil
}
