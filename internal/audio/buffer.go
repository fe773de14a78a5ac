package audio

import "sync"

// SpeakerBuffer is a bounded rolling buffer of mono PCM for one speaker.
// It keeps track of the absolute sample offset of its first retained sample
// so hotword detections can report where speech resumes after the phrase and
// the collector can start cleanly from that point.
type SpeakerBuffer struct {
	mu      sync.Mutex
	samples []int16
	max     int
	offset  int // absolute offset of samples[0] since the buffer was created
}

// NewSpeakerBuffer returns a buffer that retains at most max samples; older
// samples are discarded from the front as new ones arrive.
func NewSpeakerBuffer(max int) *SpeakerBuffer {
	if max <= 0 {
		max = SampleRate * 5
	}
	return &SpeakerBuffer{samples: make([]int16, 0, max), max: max}
}

// Append adds samples, evicting the oldest when the bound is exceeded.
func (b *SpeakerBuffer) Append(pcm []int16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = append(b.samples, pcm...)
	if over := len(b.samples) - b.max; over > 0 {
		b.samples = b.samples[over:]
		b.offset += over
	}
}

// Len returns the number of retained samples.
func (b *SpeakerBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

// Offset returns the absolute offset of the first retained sample.
func (b *SpeakerBuffer) Offset() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.offset
}

// End returns the absolute offset one past the newest sample.
func (b *SpeakerBuffer) End() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.offset + len(b.samples)
}

// Tail returns a copy of the most recent n samples (fewer when the buffer
// holds less).
func (b *SpeakerBuffer) Tail(n int) []int16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n > len(b.samples) {
		n = len(b.samples)
	}
	out := make([]int16, n)
	copy(out, b.samples[len(b.samples)-n:])
	return out
}

// DiscardTo drops everything before the absolute offset abs, so the next
// read starts at the post-phrase position. Offsets in the past are a no-op;
// offsets beyond the end clear the buffer.
func (b *SpeakerBuffer) DiscardTo(abs int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := abs - b.offset
	if n <= 0 {
		return
	}
	if n >= len(b.samples) {
		b.offset += len(b.samples)
		b.samples = b.samples[:0]
		return
	}
	b.samples = b.samples[n:]
	b.offset += n
}

// Reset clears all retained samples but keeps the absolute offset monotonic.
func (b *SpeakerBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.offset += len(b.samples)
	b.samples = b.samples[:0]
}
