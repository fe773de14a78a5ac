package voice

import (
	"sync"
	"time"

	"github.com/orallm/voicebot/internal/audio"
)

// SpeakerMode is a speaker's position in the turn cycle. Transitions only
// move forward (idle -> listening -> transcribing -> idle); the sole
// exception is a forced reset after a timeout or disconnect.
type SpeakerMode int

const (
	ModeIdle SpeakerMode = iota
	ModeListening
	ModeTranscribing
)

func (m SpeakerMode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeListening:
		return "listening"
	case ModeTranscribing:
		return "transcribing"
	}
	return "unknown"
}

// speakerState tracks one speaker inside a session. The rolling buffer feeds
// hotword scanning while idle; the collector accumulates the utterance while
// listening.
type speakerState struct {
	mu   sync.Mutex
	id   string
	mode SpeakerMode
	buf  *audio.SpeakerBuffer
	vad  *audio.VAD
	col  *collector

	correlationID string
	listenedAt    time.Time
}

func newSpeakerState(id string, bufSamples int, threshold float64) *speakerState {
	return &speakerState{
		id:  id,
		buf: audio.NewSpeakerBuffer(bufSamples),
		vad: audio.NewVAD(audio.VADConfig{EnergyThreshold: threshold, SilenceFrames: 10}),
	}
}

// startListening moves idle -> listening, seeding the collector with audio
// already buffered past the wake phrase.
func (st *speakerState) startListening(seed []int16, correlationID string, now time.Time) bool {
	if st.mode != ModeIdle {
		return false
	}
	st.mode = ModeListening
	st.correlationID = correlationID
	st.listenedAt = now
	st.vad.Reset()
	st.col = newCollector(now)
	if len(seed) > 0 {
		st.col.add(seed, true, now)
	}
	st.buf.Reset()
	return true
}

// beginTranscribing moves listening -> transcribing and hands out the
// collected utterance.
func (st *speakerState) beginTranscribing() (*collector, bool) {
	if st.mode != ModeListening || st.col == nil {
		return nil, false
	}
	st.mode = ModeTranscribing
	col := st.col
	st.col = nil
	return col, true
}

// finishTurn returns the speaker to idle after a turn completes, whatever
// the outcome.
func (st *speakerState) finishTurn() {
	st.mode = ModeIdle
	st.correlationID = ""
	st.buf.Reset()
}

// forceReset abandons any in-progress collection. Used on listen timeout
// and on disconnect.
func (st *speakerState) forceReset() {
	st.mode = ModeIdle
	st.col = nil
	st.correlationID = ""
	st.buf.Reset()
}

// collector accumulates one utterance. voicedLen marks the end of the last
// voiced frame so trailing silence never reaches transcription.
type collector struct {
	samples    []int16
	voicedLen  int
	startedAt  time.Time
	lastVoiced time.Time
}

func newCollector(now time.Time) *collector {
	return &collector{startedAt: now, lastVoiced: now}
}

func (c *collector) add(pcm []int16, voiced bool, now time.Time) {
	c.samples = append(c.samples, pcm...)
	if voiced {
		c.voicedLen = len(c.samples)
		c.lastVoiced = now
	}
}

// durationSamples is the collected length including trailing silence.
func (c *collector) durationSamples() int { return len(c.samples) }

// finalizeReason reports whether collection should end now: "" to keep
// collecting, otherwise "silence" or "max_duration".
func (c *collector) finalizeReason(now time.Time, silenceTimeout, maxUtterance time.Duration) string {
	if time.Duration(len(c.samples))*time.Second/audio.SampleRate >= maxUtterance {
		return "max_duration"
	}
	if now.Sub(c.lastVoiced) >= silenceTimeout {
		return "silence"
	}
	return ""
}

// take returns the utterance with trailing silence trimmed.
func (c *collector) take() []int16 {
	return c.samples[:c.voicedLen]
}
