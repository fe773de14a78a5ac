// Package audio holds the PCM primitives shared by the voice pipeline:
// the per-speaker rolling buffer, energy-based voice activity detection,
// WAV framing for the STT/TTS boundaries, and the Opus codec wrappers.
package audio

import "math"

const (
	// SampleRate is the pipeline-internal sample rate. Discord voice runs at
	// 48kHz; inbound stereo is downmixed to mono at this rate.
	SampleRate = 48000

	// FrameSamples is one 20ms mono frame at SampleRate.
	FrameSamples = SampleRate / 50
)

// CalculateRMS returns the root-mean-square energy of the samples.
func CalculateRMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSq float64
	for _, s := range samples {
		v := float64(s)
		sumSq += v * v
	}
	return math.Sqrt(sumSq / float64(len(samples)))
}

// DownmixStereo averages interleaved stereo samples into mono. Input length
// must be even; a trailing odd sample is dropped.
func DownmixStereo(stereo []int16) []int16 {
	mono := make([]int16, len(stereo)/2)
	for i := range mono {
		mono[i] = int16((int32(stereo[2*i]) + int32(stereo[2*i+1])) / 2)
	}
	return mono
}

// DuplicateMono interleaves a mono signal into two identical channels.
func DuplicateMono(mono []int16) []int16 {
	stereo := make([]int16, len(mono)*2)
	for i, s := range mono {
		stereo[2*i] = s
		stereo[2*i+1] = s
	}
	return stereo
}
