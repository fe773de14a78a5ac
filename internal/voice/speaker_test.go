package voice

import (
	"testing"
	"time"

	"github.com/orallm/voicebot/internal/audio"
)

func pcmOf(frames int, amplitude int16) []int16 {
	out := make([]int16, frames*audio.FrameSamples)
	for i := range out {
		out[i] = amplitude
	}
	return out
}

func TestSpeakerTransitionsAreMonotonic(t *testing.T) {
	st := newSpeakerState("u1", audio.SampleRate, 500)
	now := time.Now()

	if _, ok := st.beginTranscribing(); ok {
		t.Fatal("idle -> transcribing must be rejected")
	}
	if !st.startListening(nil, "cid", now) {
		t.Fatal("idle -> listening rejected")
	}
	if st.startListening(nil, "cid2", now) {
		t.Fatal("listening -> listening must be rejected")
	}
	if _, ok := st.beginTranscribing(); !ok {
		t.Fatal("listening -> transcribing rejected")
	}
	if st.startListening(nil, "cid3", now) {
		t.Fatal("transcribing -> listening must be rejected")
	}
	st.finishTurn()
	if st.mode != ModeIdle {
		t.Fatalf("mode after finishTurn = %v, want idle", st.mode)
	}
	if !st.startListening(nil, "cid4", now) {
		t.Fatal("idle -> listening rejected after turn")
	}
	st.forceReset()
	if st.mode != ModeIdle || st.col != nil {
		t.Fatal("forceReset did not clear state")
	}
}

func TestCollectorTrimsTrailingSilence(t *testing.T) {
	now := time.Now()
	c := newCollector(now)
	c.add(pcmOf(5, 2000), true, now)
	c.add(pcmOf(3, 0), false, now.Add(60*time.Millisecond))
	c.add(pcmOf(2, 0), false, now.Add(100*time.Millisecond))

	got := c.take()
	want := 5 * audio.FrameSamples
	if len(got) != want {
		t.Fatalf("take() len = %d, want %d (trailing silence trimmed)", len(got), want)
	}
	if c.durationSamples() != 10*audio.FrameSamples {
		t.Fatalf("durationSamples = %d, want %d", c.durationSamples(), 10*audio.FrameSamples)
	}
}

func TestCollectorFinalizeReasons(t *testing.T) {
	now := time.Now()
	c := newCollector(now)
	c.add(pcmOf(5, 2000), true, now)

	if r := c.finalizeReason(now.Add(50*time.Millisecond), 100*time.Millisecond, time.Minute); r != "" {
		t.Fatalf("finalizeReason too early = %q", r)
	}
	if r := c.finalizeReason(now.Add(150*time.Millisecond), 100*time.Millisecond, time.Minute); r != "silence" {
		t.Fatalf("finalizeReason = %q, want silence", r)
	}

	// a second of audio against a 100ms cap trips the duration limit first
	c2 := newCollector(now)
	c2.add(pcmOf(50, 2000), true, now)
	if r := c2.finalizeReason(now, time.Minute, 100*time.Millisecond); r != "max_duration" {
		t.Fatalf("finalizeReason = %q, want max_duration", r)
	}
}

func TestStartListeningSeedsCollector(t *testing.T) {
	st := newSpeakerState("u1", 5*audio.SampleRate, 500)
	seed := pcmOf(2, 1500)
	if !st.startListening(seed, "cid", time.Now()) {
		t.Fatal("startListening failed")
	}
	if st.col == nil || len(st.col.samples) != len(seed) {
		t.Fatalf("collector not seeded: %d samples", len(st.col.samples))
	}
	if st.buf.Len() != 0 {
		t.Fatal("rolling buffer not reset on listen start")
	}
}
