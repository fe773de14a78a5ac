//go:build !opus
// +build !opus

package audio

// This file provides stub codec constructors for builds without libopus.
// The real implementations live in opus.go behind the `opus` build tag,
// mirroring how the rest of the pipeline stays testable without cgo.

// NewOpusDecoder returns an error in non-opus builds.
func NewOpusDecoder() (Decoder, error) { return nil, ErrOpusUnavailable }

// NewOpusEncoder returns an error in non-opus builds.
func NewOpusEncoder() (Encoder, error) { return nil, ErrOpusUnavailable }
