package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// BuildWAV wraps 16-bit little-endian PCM in a RIFF/WAVE header.
func BuildWAV(pcm []int16, sampleRate, channels int) []byte {
	data := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return BuildWAVBytes(data, sampleRate, channels, 16)
}

// BuildWAVBytes builds the header around already-encoded PCM bytes.
func BuildWAVBytes(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	byteRate := uint32(sampleRate * channels * bitsPerSample / 8)
	blockAlign := uint16(channels * bitsPerSample / 8)
	dataLen := uint32(len(pcm))
	riffSize := uint32(4 + (8 + 16) + (8 + dataLen))

	buf := &bytes.Buffer{}
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, riffSize)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, byteRate)
	binary.Write(buf, binary.LittleEndian, blockAlign)
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, dataLen)
	buf.Write(pcm)
	return buf.Bytes()
}

// ParseWAV extracts 16-bit PCM samples from a RIFF/WAVE payload. Stereo audio
// is downmixed to mono. Only uncompressed 16-bit PCM is accepted, which is
// what the synthesis backend produces.
func ParseWAV(data []byte) (samples []int16, sampleRate int, err error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a RIFF/WAVE payload")
	}

	var (
		channels      int
		bitsPerSample int
		pcm           []byte
	)
	// Walk the chunk list; fmt and data may be separated by extension chunks.
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			size = len(data) - body
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, fmt.Errorf("wav: short fmt chunk")
			}
			format := binary.LittleEndian.Uint16(data[body:])
			if format != 1 {
				return nil, 0, fmt.Errorf("wav: unsupported format %d (want PCM)", format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14:]))
		case "data":
			pcm = data[body : body+size]
		}
		// Chunks are word-aligned.
		off = body + size + size%2
	}

	if sampleRate == 0 || pcm == nil {
		return nil, 0, fmt.Errorf("wav: missing fmt or data chunk")
	}
	if bitsPerSample != 16 {
		return nil, 0, fmt.Errorf("wav: unsupported bit depth %d", bitsPerSample)
	}
	if channels < 1 || channels > 2 {
		return nil, 0, fmt.Errorf("wav: unsupported channel count %d", channels)
	}

	raw := make([]int16, len(pcm)/2)
	for i := range raw {
		raw[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	if channels == 2 {
		raw = DownmixStereo(raw)
	}
	return raw, sampleRate, nil
}
