package voice

import (
	"context"
	"time"
)

// Frame is one decoded block of mono 48kHz PCM attributed to a speaker.
type Frame struct {
	SpeakerID string
	PCM       []int16
	Received  time.Time
}

// FrameSource delivers decoded frames from the transport. The channel is
// closed when the underlying connection ends.
type FrameSource interface {
	Frames() <-chan Frame
	Close() error
}

// AudioSender plays PCM into the voice channel. Send blocks until the audio
// has been handed off or ctx is done; callers serialize access.
type AudioSender interface {
	Speaking(on bool) error
	Send(ctx context.Context, pcm []int16, sampleRate int) error
}

// Transcriber turns an utterance into text.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []int16, correlationID string) (string, error)
}

// Responder resolves response text for a query. A non-empty return is
// speakable; "" means nothing to play.
type Responder interface {
	Respond(ctx context.Context, speakerID, text, correlationID string) string
}

// Synthesizer renders response text to WAV bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
