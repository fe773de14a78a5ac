package audio

// Resample converts samples from inRate to outRate using linear
// interpolation. Good enough for speech playback; synthesis output is
// typically 24kHz and the voice transport wants 48kHz.
func Resample(samples []int16, inRate, outRate int) []int16 {
	if inRate == outRate || len(samples) == 0 {
		return samples
	}
	ratio := float64(outRate) / float64(inRate)
	out := make([]int16, int(float64(len(samples))*ratio))
	for i := range out {
		pos := float64(i) / ratio
		idx := int(pos)
		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := pos - float64(idx)
		a := float64(samples[idx])
		b := float64(samples[idx+1])
		out[i] = int16(a + (b-a)*frac)
	}
	return out
}
