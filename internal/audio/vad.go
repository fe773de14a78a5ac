package audio

// VADConfig tunes energy-based voice activity detection.
type VADConfig struct {
	EnergyThreshold float64 // RMS threshold above which a frame counts as speech
	SilenceFrames   int     // consecutive quiet frames that end a speech run
	FrameSize       int     // samples per frame fed to ProcessFrame
}

// DefaultVADConfig returns a configuration suited to 48kHz 20ms frames.
func DefaultVADConfig() VADConfig {
	return VADConfig{
		EnergyThreshold: 500.0,
		SilenceFrames:   50, // 1s of 20ms frames
		FrameSize:       FrameSamples,
	}
}

// VAD classifies frames against a single RMS threshold and tracks speech
// runs with a consecutive-silence hangover.
type VAD struct {
	cfg          VADConfig
	silenceCount int
	speaking     bool
}

func NewVAD(cfg VADConfig) *VAD {
	if cfg.EnergyThreshold <= 0 {
		cfg.EnergyThreshold = 500.0
	}
	if cfg.SilenceFrames <= 0 {
		cfg.SilenceFrames = 50
	}
	return &VAD{cfg: cfg}
}

// ProcessFrame classifies one frame. voiced is the instantaneous
// classification; started and ended flag the edges of a speech run, where a
// run survives up to SilenceFrames quiet frames before ending.
func (v *VAD) ProcessFrame(samples []int16) (voiced, started, ended bool) {
	voiced = CalculateRMS(samples) > v.cfg.EnergyThreshold
	if voiced {
		v.silenceCount = 0
		if !v.speaking {
			v.speaking = true
			started = true
		}
	} else {
		v.silenceCount++
		if v.speaking && v.silenceCount >= v.cfg.SilenceFrames {
			v.speaking = false
			v.silenceCount = 0
			ended = true
		}
	}
	return voiced, started, ended
}

// Reset clears state, e.g. when a speaker's utterance cycle is force-reset.
func (v *VAD) Reset() {
	v.silenceCount = 0
	v.speaking = false
}

// IsVoiced reports whether the samples exceed the configured energy threshold.
func (v *VAD) IsVoiced(samples []int16) bool {
	return CalculateRMS(samples) > v.cfg.EnergyThreshold
}
