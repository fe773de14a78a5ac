package voice

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/orallm/voicebot/internal/logging"
	"github.com/orallm/voicebot/internal/metrics"
)

// PlaybackItem is one synthesized response awaiting its turn on the
// channel's audio output.
type PlaybackItem struct {
	Seq           uint64
	SpeakerID     string
	CorrelationID string
	PCM           []int16
	SampleRate    int
}

// PlaybackQueue serializes audio output for one channel. A single consumer
// plays items strictly in enqueue order; at most one item plays at a time.
type PlaybackQueue struct {
	sender    AudioSender
	timeout   time.Duration
	channelID string

	mu     sync.Mutex
	seq    uint64
	closed bool
	ch     chan PlaybackItem

	draining atomic.Bool
	done     chan struct{}
}

// NewPlaybackQueue builds a queue with the given capacity. Start must be
// called before Enqueue.
func NewPlaybackQueue(sender AudioSender, capacity int, timeout time.Duration, channelID string) *PlaybackQueue {
	return &PlaybackQueue{
		sender:    sender,
		timeout:   timeout,
		channelID: channelID,
		ch:        make(chan PlaybackItem, capacity),
		done:      make(chan struct{}),
	}
}

// Start launches the consumer loop.
func (q *PlaybackQueue) Start() {
	go q.run()
}

// Enqueue adds an item without blocking. Sequence numbers are assigned here,
// so enqueue order is playback order even under concurrent callers.
func (q *PlaybackQueue) Enqueue(item PlaybackItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrSessionClosed
	}
	item.Seq = q.seq
	select {
	case q.ch <- item:
		q.seq++
		metrics.SetQueueDepth(q.channelID, len(q.ch))
		return nil
	default:
		metrics.QueueRejected()
		return ErrQueueFull
	}
}

// Close drains the queue: the item playing finishes, queued items are
// discarded, then the consumer exits. Safe to call more than once.
func (q *PlaybackQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	q.draining.Store(true)
	close(q.ch)
	q.mu.Unlock()
	<-q.done
	metrics.DropQueueDepth(q.channelID)
}

func (q *PlaybackQueue) run() {
	defer close(q.done)
	for item := range q.ch {
		if q.draining.Load() {
			logging.Debugw("playback: discarding queued item on drain",
				"channel_id", q.channelID, "seq", item.Seq, "correlation_id", item.CorrelationID)
			continue
		}
		q.play(item)
		metrics.SetQueueDepth(q.channelID, len(q.ch))
	}
}

func (q *PlaybackQueue) play(item PlaybackItem) {
	ctx := context.Background()
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	if err := q.sender.Speaking(true); err != nil {
		logging.Warnw("playback: speaking on failed", "channel_id", q.channelID, "err", err)
	}
	defer func() {
		if err := q.sender.Speaking(false); err != nil {
			logging.Debugw("playback: speaking off failed", "channel_id", q.channelID, "err", err)
		}
	}()

	start := time.Now()
	err := q.sender.Send(ctx, item.PCM, item.SampleRate)
	metrics.ObserveStage("playback", time.Since(start))
	if err != nil {
		logging.Warnw("playback: send failed",
			"channel_id", q.channelID,
			"seq", item.Seq,
			"correlation_id", item.CorrelationID,
			"err", err)
		return
	}
	logging.Debugw("playback: item played",
		"channel_id", q.channelID,
		"seq", item.Seq,
		"correlation_id", item.CorrelationID,
		"elapsed", time.Since(start))
}
