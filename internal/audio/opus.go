//go:build opus
// +build opus

package audio

import (
	"github.com/hraban/opus"
)

// opusDecoder wraps a stateful libopus decoder for one inbound stream.
// Discord delivers 48kHz stereo Opus; output is downmixed mono PCM.
type opusDecoder struct {
	dec *opus.Decoder
	buf []int16
}

// NewOpusDecoder returns a decoder for one speaker's stream.
func NewOpusDecoder() (Decoder, error) {
	dec, err := opus.NewDecoder(SampleRate, 2)
	if err != nil {
		return nil, err
	}
	// 120ms is the maximum Opus frame duration.
	return &opusDecoder{dec: dec, buf: make([]int16, 2*SampleRate*120/1000)}, nil
}

func (d *opusDecoder) Decode(packet []byte) ([]int16, error) {
	n, err := d.dec.Decode(packet, d.buf)
	if err != nil {
		return nil, err
	}
	return DownmixStereo(d.buf[:n*2]), nil
}

// opusEncoder wraps a libopus encoder for outbound playback frames.
type opusEncoder struct {
	enc *opus.Encoder
	buf []byte
}

// NewOpusEncoder returns an encoder producing 48kHz stereo packets.
func NewOpusEncoder() (Encoder, error) {
	enc, err := opus.NewEncoder(SampleRate, 2, opus.AppVoIP)
	if err != nil {
		return nil, err
	}
	return &opusEncoder{enc: enc, buf: make([]byte, 4000)}, nil
}

// Encode encodes one 20ms mono frame (FrameSamples samples) into an Opus
// packet, duplicating the mono signal onto both channels.
func (e *opusEncoder) Encode(mono []int16) ([]byte, error) {
	n, err := e.enc.Encode(DuplicateMono(mono), e.buf)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, e.buf[:n])
	return out, nil
}
