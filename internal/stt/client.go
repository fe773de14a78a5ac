// Package stt sends finished utterances to a whisper-style HTTP endpoint and
// returns the recognized text.
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/orallm/voicebot/internal/audio"
	"github.com/orallm/voicebot/internal/logging"
)

// ErrTranscriptionFailed covers every stage-local STT failure: unreachable
// backend, non-2xx status, empty result, and confidence below threshold.
// It is never fatal to the session.
var ErrTranscriptionFailed = errors.New("stt: transcription failed")

// Client posts WAV audio to the transcription service.
type Client struct {
	URL           string
	Language      string
	MinConfidence float64
	Timeout       time.Duration
	HTTP          *http.Client
}

// New returns a client with a dedicated HTTP client sized to the timeout.
func New(rawurl, language string, minConfidence float64, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		URL:           rawurl,
		Language:      language,
		MinConfidence: minConfidence,
		Timeout:       timeout,
		HTTP:          &http.Client{Timeout: timeout},
	}
}

type response struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Transcribe wraps mono 48kHz PCM in a WAV container and posts it. It
// returns the trimmed transcript, or ErrTranscriptionFailed; whitespace-only
// results are failures. Transient transport and 5xx errors are retried up to
// three times within the caller's context.
func (c *Client) Transcribe(ctx context.Context, pcm []int16, correlationID string) (string, error) {
	if c.URL == "" {
		return "", fmt.Errorf("%w: no endpoint configured", ErrTranscriptionFailed)
	}
	endpoint := c.URL
	if u, err := url.Parse(c.URL); err == nil {
		q := u.Query()
		if c.Language != "" {
			q.Set("language", c.Language)
		}
		u.RawQuery = q.Encode()
		endpoint = u.String()
	}

	wav := audio.BuildWAV(pcm, audio.SampleRate, 1)

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		reqCtx, cancel := context.WithTimeout(ctx, c.Timeout)
		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(wav))
		if err != nil {
			cancel()
			return "", fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
		}
		req.Header.Set("Content-Type", "audio/wav")
		if correlationID != "" {
			req.Header.Set("X-Correlation-ID", correlationID)
		}

		sent := time.Now()
		resp, err := c.HTTP.Do(req)
		cancel()
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			logging.Warnw("stt: request failed", "err", err, "attempt", attempt, "correlation_id", correlationID)
			sleepBackoff(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server status %d", resp.StatusCode)
			logging.Warnw("stt: server error", "status", resp.StatusCode, "attempt", attempt, "correlation_id", correlationID)
			sleepBackoff(ctx, attempt)
			continue
		}
		if resp.StatusCode >= 300 {
			resp.Body.Close()
			return "", fmt.Errorf("%w: status %d", ErrTranscriptionFailed, resp.StatusCode)
		}

		var out response
		err = json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()
		if err != nil {
			return "", fmt.Errorf("%w: decode: %v", ErrTranscriptionFailed, err)
		}

		text := strings.TrimSpace(out.Text)
		logging.Debugw("stt: response received",
			"latency_ms", time.Since(sent).Milliseconds(),
			"confidence", out.Confidence,
			"text_len", len(text),
			"correlation_id", correlationID)

		if text == "" {
			return "", fmt.Errorf("%w: empty transcript", ErrTranscriptionFailed)
		}
		if c.MinConfidence > 0 && out.Confidence > 0 && out.Confidence < c.MinConfidence {
			return "", fmt.Errorf("%w: confidence %.2f below %.2f", ErrTranscriptionFailed, out.Confidence, c.MinConfidence)
		}
		return text, nil
	}
	return "", fmt.Errorf("%w: %v", ErrTranscriptionFailed, lastErr)
}

func sleepBackoff(ctx context.Context, attempt int) {
	t := time.NewTimer(time.Duration(200*(1<<attempt)) * time.Millisecond)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
