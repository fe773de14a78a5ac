// Package dispatch routes transcribed queries to the configured backend
// and shapes the reply for speech.
package dispatch

import (
	"context"
	"time"

	"github.com/orallm/voicebot/internal/llm"
	"github.com/orallm/voicebot/internal/logging"
	"github.com/orallm/voicebot/internal/metrics"
	"github.com/orallm/voicebot/internal/notify"
)

// Chatter is the conversational backend.
type Chatter interface {
	Chat(ctx context.Context, messages []llm.Message) (string, error)
}

// Searcher is the web search backend. Both the SerpApi client and the MCP
// tool client satisfy it.
type Searcher interface {
	Answer(ctx context.Context, query string) (string, error)
}

// Dispatcher sends each finalized transcript to exactly one backend.
// Backend failures never propagate; the caller receives fallback text, or
// an empty string when fallback speech is disabled.
type Dispatcher struct {
	Chat   Chatter
	Search Searcher

	SystemPrompt  string
	Timeout       time.Duration
	FallbackText  string
	SpeakFallback bool

	Notifier notify.Notifier
}

// Respond resolves text for the speaker's query. A non-empty return is
// always speakable; "" means the turn produced nothing to play.
func (d *Dispatcher) Respond(ctx context.Context, speakerID, text, correlationID string) string {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	start := time.Now()
	answer, err := d.query(ctx, text)
	metrics.ObserveStage("dispatch", time.Since(start))

	if err != nil {
		logging.Warnw("dispatch: backend failed",
			"speaker_id", speakerID,
			"correlation_id", correlationID,
			"elapsed", time.Since(start),
			"err", err)
		if d.SpeakFallback {
			return d.FallbackText
		}
		return ""
	}

	logging.Infow("dispatch: answered",
		"speaker_id", speakerID,
		"correlation_id", correlationID,
		"elapsed", time.Since(start),
		"chars", len(answer))

	if d.Notifier != nil {
		go d.Notifier.Notify(speakerID, answer)
	}
	return answer
}

func (d *Dispatcher) query(ctx context.Context, text string) (string, error) {
	if d.Search != nil {
		return d.Search.Answer(ctx, text)
	}
	messages := []llm.Message{}
	if d.SystemPrompt != "" {
		messages = append(messages, llm.Message{Role: "system", Content: d.SystemPrompt})
	}
	messages = append(messages, llm.Message{Role: "user", Content: text})
	return d.Chat.Chat(ctx, messages)
}
