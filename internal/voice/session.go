package voice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/orallm/voicebot/internal/audio"
	"github.com/orallm/voicebot/internal/hotword"
	"github.com/orallm/voicebot/internal/logging"
	"github.com/orallm/voicebot/internal/metrics"
)

// SessionState is the lifecycle position of a channel session.
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateActive
	StateClosing
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Pipeline bundles the per-turn processing stages.
type Pipeline struct {
	Transcribe Transcriber
	Respond    Responder
	Synthesize Synthesizer
	Detector   hotword.Detector
	Matcher    *hotword.Matcher
}

// SessionConfig carries the tunables a session needs from configuration.
type SessionConfig struct {
	GuildID   string
	ChannelID string

	VADThreshold   float64
	SilenceTimeout time.Duration
	MaxUtterance   time.Duration
	BufferSamples  int

	QueueCapacity   int
	PlaybackTimeout time.Duration
}

// Session runs the listen/transcribe/respond/play loop for one voice
// channel. Per-speaker pipelines are independent; playback is the single
// serialized resource.
type Session struct {
	cfg    SessionConfig
	source FrameSource
	queue  *PlaybackQueue
	pipe   Pipeline

	state  atomic.Int32
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	speakers map[string]*speakerState

	// onLost is invoked once when the transport drops while active.
	onLost func()

	tickInterval time.Duration
	closeOnce    sync.Once
}

// NewSession builds a session in the connecting state.
func NewSession(cfg SessionConfig, source FrameSource, sender AudioSender, pipe Pipeline) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		cfg:          cfg,
		source:       source,
		queue:        NewPlaybackQueue(sender, cfg.QueueCapacity, cfg.PlaybackTimeout, cfg.ChannelID),
		pipe:         pipe,
		ctx:          ctx,
		cancel:       cancel,
		speakers:     make(map[string]*speakerState),
		tickInterval: 200 * time.Millisecond,
	}
	s.state.Store(int32(StateConnecting))
	return s
}

// State reports the current lifecycle state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// Start moves the session to active and begins consuming frames.
func (s *Session) Start() error {
	if !s.state.CompareAndSwap(int32(StateConnecting), int32(StateActive)) {
		return ErrSessionClosed
	}
	s.queue.Start()
	s.wg.Add(1)
	go s.ingest()
	logging.Infow("voice: session active",
		"guild_id", s.cfg.GuildID, "channel_id", s.cfg.ChannelID)
	return nil
}

// Close tears the session down: frame intake stops, in-flight turns are
// cancelled, the playing item finishes, queued items are discarded.
// Idempotent; the first caller does the work.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosing))
		logging.Infow("voice: session closing", "channel_id", s.cfg.ChannelID)
		s.cancel()
		_ = s.source.Close()
		s.wg.Wait()
		s.queue.Close()
		s.mu.Lock()
		for _, st := range s.speakers {
			st.mu.Lock()
			st.forceReset()
			st.mu.Unlock()
		}
		s.mu.Unlock()
		s.state.Store(int32(StateClosed))
		logging.Infow("voice: session closed", "channel_id", s.cfg.ChannelID)
	})
	return nil
}

func (s *Session) speaker(id string) *speakerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.speakers[id]
	if !ok {
		st = newSpeakerState(id, s.cfg.BufferSamples, s.cfg.VADThreshold)
		s.speakers[id] = st
	}
	return st
}

func (s *Session) ingest() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()
	frames := s.source.Frames()
	for {
		select {
		case <-s.ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				if s.State() == StateActive {
					logging.Warnw("voice: frame source ended unexpectedly",
						"channel_id", s.cfg.ChannelID, "err", ErrConnectionLost)
					if s.onLost != nil {
						go s.onLost()
					}
				}
				return
			}
			s.handleFrame(f)
		case now := <-ticker.C:
			s.tick(now)
		}
	}
}

// handleFrame advances the speaker's state machine with one frame. The work
// per frame is bounded: a buffer append plus at most one detector scan.
func (s *Session) handleFrame(f Frame) {
	if len(f.PCM) == 0 {
		return
	}
	now := f.Received
	if now.IsZero() {
		now = time.Now()
	}
	st := s.speaker(f.SpeakerID)
	st.mu.Lock()
	defer st.mu.Unlock()

	switch st.mode {
	case ModeIdle:
		st.buf.Append(f.PCM)
		det, ok := s.pipe.Detector.Scan(st.buf)
		if !ok {
			return
		}
		// Seed from the burst start so the phrase audio itself gets
		// transcribed; the transcript gate in runTurn rejects bursts that
		// never contained the phrase.
		st.buf.DiscardTo(det.PhraseOffset)
		seed := st.buf.Tail(st.buf.Len())
		cid := uuid.NewString()
		if st.startListening(seed, cid, now) {
			metrics.HotwordDetected()
			logging.Infow("voice: wake phrase candidate",
				"speaker_id", st.id,
				"confidence", det.Confidence,
				"phrase_offset", det.PhraseOffset,
				"correlation_id", cid)
		}
	case ModeListening:
		voiced, started, ended := st.vad.ProcessFrame(f.PCM)
		if started || ended {
			logging.Debugw("voice: speech edge",
				"speaker_id", st.id, "started", started, "ended", ended)
		}
		st.col.add(f.PCM, voiced, now)
		if reason := st.col.finalizeReason(now, s.cfg.SilenceTimeout, s.cfg.MaxUtterance); reason != "" {
			s.finalizeLocked(st, reason)
		}
	case ModeTranscribing:
		// frames during an in-flight turn are dropped
	}
}

// tick finalizes listening speakers whose audio stopped arriving; the
// transport sends nothing during silence, so silence must be detected on a
// clock, not on frames.
func (s *Session) tick(now time.Time) {
	s.mu.Lock()
	speakers := make([]*speakerState, 0, len(s.speakers))
	for _, st := range s.speakers {
		speakers = append(speakers, st)
	}
	s.mu.Unlock()

	for _, st := range speakers {
		st.mu.Lock()
		if st.mode == ModeListening && st.col != nil {
			if reason := st.col.finalizeReason(now, s.cfg.SilenceTimeout, s.cfg.MaxUtterance); reason != "" {
				s.finalizeLocked(st, reason)
			}
		}
		st.mu.Unlock()
	}
}

// finalizeLocked moves the speaker to transcribing and launches the turn.
// Caller holds st.mu.
func (s *Session) finalizeLocked(st *speakerState, reason string) {
	col, ok := st.beginTranscribing()
	if !ok {
		return
	}
	pcm := col.take()
	cid := st.correlationID
	if len(pcm) == 0 {
		metrics.TurnResult("empty_utterance")
		st.finishTurn()
		return
	}
	logging.Infow("voice: utterance finalized",
		"speaker_id", st.id,
		"reason", reason,
		"duration_ms", len(pcm)*1000/audio.SampleRate,
		"correlation_id", cid)
	s.wg.Add(1)
	go s.runTurn(st, pcm, cid)
}

// runTurn drives one utterance through transcription, dispatch, synthesis
// and enqueue. Failures end the turn for this speaker only; other speakers'
// turns are unaffected.
func (s *Session) runTurn(st *speakerState, pcm []int16, correlationID string) {
	defer s.wg.Done()
	defer func() {
		st.mu.Lock()
		st.finishTurn()
		st.mu.Unlock()
	}()

	ctx := s.ctx

	start := time.Now()
	text, err := s.pipe.Transcribe.Transcribe(ctx, pcm, correlationID)
	metrics.ObserveStage("stt", time.Since(start))
	if err != nil {
		if ctx.Err() != nil {
			metrics.TurnResult("cancelled")
			return
		}
		metrics.TurnResult("stt_failed")
		logging.Warnw("voice: transcription failed",
			append(logging.TurnFields(st.id, correlationID), "err", err)...)
		return
	}

	if s.pipe.Matcher != nil {
		ok, stripped := s.pipe.Matcher.Match(text)
		if !ok {
			metrics.TurnResult("no_wake_phrase")
			logging.Debugw("voice: transcript lacks wake phrase, discarding",
				append(logging.TurnFields(st.id, correlationID), "chars", len(text))...)
			return
		}
		text = stripped
	}
	text = strings.TrimSpace(text)
	if text == "" {
		metrics.TurnResult("empty_transcript")
		logging.Debugw("voice: nothing left after wake phrase strip",
			"speaker_id", st.id, "correlation_id", correlationID)
		return
	}
	logging.Infow("voice: transcript ready",
		append(logging.TurnFields(st.id, correlationID), "chars", len(text))...)

	reply := s.pipe.Respond.Respond(ctx, st.id, text, correlationID)
	if ctx.Err() != nil {
		metrics.TurnResult("cancelled")
		return
	}
	if reply == "" {
		metrics.TurnResult("no_reply")
		return
	}

	tstart := time.Now()
	wav, err := s.pipe.Synthesize.Synthesize(ctx, reply)
	metrics.ObserveStage("tts", time.Since(tstart))
	if err != nil {
		if ctx.Err() != nil {
			metrics.TurnResult("cancelled")
			return
		}
		metrics.TurnResult("tts_failed")
		logging.Warnw("voice: synthesis failed",
			"speaker_id", st.id, "correlation_id", correlationID, "err", err)
		return
	}

	samples, rate, err := audio.ParseWAV(wav)
	if err != nil {
		metrics.TurnResult("bad_audio")
		logging.Warnw("voice: synthesized audio unreadable",
			"speaker_id", st.id, "correlation_id", correlationID, "err", err)
		return
	}
	if rate != audio.SampleRate {
		samples = audio.Resample(samples, rate, audio.SampleRate)
		rate = audio.SampleRate
	}

	err = s.queue.Enqueue(PlaybackItem{
		SpeakerID:     st.id,
		CorrelationID: correlationID,
		PCM:           samples,
		SampleRate:    rate,
	})
	switch {
	case err == nil:
		metrics.TurnResult("ok")
	case errors.Is(err, ErrQueueFull):
		metrics.TurnResult("queue_full")
		logging.Warnw("voice: playback queue full, dropping response",
			"speaker_id", st.id, "correlation_id", correlationID)
	default:
		metrics.TurnResult("cancelled")
	}
}
