// Package hotword decides when a speaker has addressed the bot. Detection is
// a pluggable strategy: the shipped EnergyDetector spots a short spoken burst
// in the rolling buffer at bounded per-scan cost, and Matcher validates and
// strips the phrase text once a transcript exists. False positives from the
// audio-level pass are cheap; the transcript gate discards turns whose text
// never contained the phrase.
package hotword

import (
	"github.com/orallm/voicebot/internal/audio"
)

// Detection reports a hotword hit inside a speaker's rolling buffer.
type Detection struct {
	// Confidence in [0,1]; derived from how strongly the burst stood out
	// above the energy threshold.
	Confidence float64
	// PhraseOffset is the absolute sample offset where the candidate burst
	// begins. Collection seeds from here so the phrase audio itself reaches
	// the transcriber and the transcript-level Matcher can confirm or reject
	// the turn.
	PhraseOffset int
	// ResumeOffset is the absolute sample offset just past the quiet gap
	// that ended the burst.
	ResumeOffset int
}

// Detector scans a speaker's rolling buffer for the wake phrase. Scan is
// called on every frame arrival and must stay cheap enough to never block
// frame ingestion.
type Detector interface {
	Scan(buf *audio.SpeakerBuffer) (Detection, bool)
}

// EnergyDetector treats a bounded voiced burst followed by a short quiet gap
// as a candidate wake phrase. Model-based detection can replace it behind the
// same interface.
type EnergyDetector struct {
	Threshold   float64 // RMS per 20ms frame
	WindowMs    int     // how much recent audio each scan examines
	MinVoicedMs int     // shortest burst that counts as a spoken phrase
	GapMs       int     // quiet gap that ends the phrase
}

// NewEnergyDetector applies defaults for zero fields.
func NewEnergyDetector(threshold float64, windowMs, minVoicedMs, gapMs int) *EnergyDetector {
	d := &EnergyDetector{Threshold: threshold, WindowMs: windowMs, MinVoicedMs: minVoicedMs, GapMs: gapMs}
	if d.Threshold <= 0 {
		d.Threshold = 500
	}
	if d.WindowMs <= 0 {
		d.WindowMs = 1500
	}
	if d.MinVoicedMs <= 0 {
		d.MinVoicedMs = 300
	}
	if d.GapMs <= 0 {
		d.GapMs = 200
	}
	return d
}

const frameMs = 20

// Scan examines only the newest WindowMs of the buffer.
func (d *EnergyDetector) Scan(buf *audio.SpeakerBuffer) (Detection, bool) {
	windowSamples := d.WindowMs * audio.SampleRate / 1000
	window := buf.Tail(windowSamples)
	frames := len(window) / audio.FrameSamples
	minVoiced := d.MinVoicedMs / frameMs
	gap := d.GapMs / frameMs
	if frames < minVoiced+gap {
		return Detection{}, false
	}

	base := buf.End() - frames*audio.FrameSamples

	var (
		runStart = -1
		runLen   int
		runPeak  float64
	)
	quiet := 0
	for i := 0; i < frames; i++ {
		frame := window[len(window)-frames*audio.FrameSamples:][i*audio.FrameSamples : (i+1)*audio.FrameSamples]
		rms := audio.CalculateRMS(frame)
		if rms > d.Threshold {
			if runStart < 0 {
				runStart = i
				runLen = 0
				runPeak = 0
			}
			runLen++
			if rms > runPeak {
				runPeak = rms
			}
			quiet = 0
			continue
		}
		if runStart < 0 {
			continue
		}
		quiet++
		if quiet >= gap {
			if runLen >= minVoiced {
				conf := runPeak / (2 * d.Threshold)
				if conf > 1 {
					conf = 1
				}
				det := Detection{
					Confidence:   conf,
					PhraseOffset: base + runStart*audio.FrameSamples,
					ResumeOffset: base + (i+1)*audio.FrameSamples,
				}
				return det, true
			}
			// Burst was too short to be a phrase; keep scanning.
			runStart = -1
			runLen = 0
			quiet = 0
		}
	}
	return Detection{}, false
}
