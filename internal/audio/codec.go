package audio

import "errors"

// ErrOpusUnavailable is returned by the codec constructors when the binary
// was built without libopus. Declared here, outside the build tags, so
// callers can test for it regardless of how the binary was built.
var ErrOpusUnavailable = errors.New("audio: built without opus support (use -tags opus)")

// Decoder turns Opus packets from one inbound stream into mono PCM.
type Decoder interface {
	Decode(packet []byte) ([]int16, error)
}

// Encoder turns 20ms mono PCM frames into Opus packets for playback.
type Encoder interface {
	Encode(mono []int16) ([]byte, error)
}
