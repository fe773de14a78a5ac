package voice

import "errors"

var (
	// ErrSessionAlreadyActive is returned on a join for a channel that
	// already has a live session.
	ErrSessionAlreadyActive = errors.New("voice: session already active for channel")
	// ErrSessionClosed is returned by operations on a closing or closed session.
	ErrSessionClosed = errors.New("voice: session closed")
	// ErrQueueFull is returned when the playback queue is at capacity. The
	// enqueue never blocks.
	ErrQueueFull = errors.New("voice: playback queue full")
	// ErrConnectionLost marks an unexpected transport disconnect.
	ErrConnectionLost = errors.New("voice: connection lost")
)
