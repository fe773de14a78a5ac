package voice

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// recordingSender records plays; delay simulates audio duration.
type recordingSender struct {
	mu       sync.Mutex
	plays    []int // identified by PCM length
	speaking []bool
	delay    time.Duration

	inFlight    int32
	maxInFlight int32
	cancelled   int32
}

func (r *recordingSender) Speaking(on bool) error {
	r.mu.Lock()
	r.speaking = append(r.speaking, on)
	r.mu.Unlock()
	return nil
}

func (r *recordingSender) Send(ctx context.Context, pcm []int16, sampleRate int) error {
	n := atomic.AddInt32(&r.inFlight, 1)
	defer atomic.AddInt32(&r.inFlight, -1)
	for {
		old := atomic.LoadInt32(&r.maxInFlight)
		if n <= old || atomic.CompareAndSwapInt32(&r.maxInFlight, old, n) {
			break
		}
	}
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			atomic.AddInt32(&r.cancelled, 1)
			return ctx.Err()
		}
	}
	r.mu.Lock()
	r.plays = append(r.plays, len(pcm))
	r.mu.Unlock()
	return nil
}

func (r *recordingSender) playedLens() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.plays))
	copy(out, r.plays)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestPlaybackFIFO(t *testing.T) {
	snd := &recordingSender{}
	q := NewPlaybackQueue(snd, 8, time.Second, "chan")
	q.Start()
	defer q.Close()

	for i := 1; i <= 5; i++ {
		if err := q.Enqueue(PlaybackItem{PCM: make([]int16, i), SampleRate: 48000}); err != nil {
			t.Fatalf("Enqueue %d: %v", i, err)
		}
	}
	waitFor(t, func() bool { return len(snd.playedLens()) == 5 })
	got := snd.playedLens()
	for i, n := range got {
		if n != i+1 {
			t.Fatalf("play order = %v, want ascending lengths", got)
		}
	}
}

func TestPlaybackSingleConsumer(t *testing.T) {
	snd := &recordingSender{delay: 10 * time.Millisecond}
	q := NewPlaybackQueue(snd, 16, time.Second, "chan")
	q.Start()
	defer q.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = q.Enqueue(PlaybackItem{PCM: make([]int16, i+1), SampleRate: 48000})
		}(i)
	}
	wg.Wait()
	waitFor(t, func() bool { return len(snd.playedLens()) == 8 })
	if max := atomic.LoadInt32(&snd.maxInFlight); max != 1 {
		t.Fatalf("max concurrent plays = %d, want 1", max)
	}
}

func TestPlaybackQueueFullNonBlocking(t *testing.T) {
	snd := &recordingSender{delay: 500 * time.Millisecond}
	q := NewPlaybackQueue(snd, 2, 2*time.Second, "chan")
	q.Start()
	defer q.Close()

	// first item starts playing, two more fill the queue
	for i := 0; i < 3; i++ {
		if err := q.Enqueue(PlaybackItem{PCM: make([]int16, 10), SampleRate: 48000}); err != nil {
			t.Fatalf("Enqueue %d: %v", i, err)
		}
		if i == 0 {
			waitFor(t, func() bool { return atomic.LoadInt32(&snd.inFlight) == 1 })
		}
	}

	start := time.Now()
	err := q.Enqueue(PlaybackItem{PCM: make([]int16, 10), SampleRate: 48000})
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("full enqueue blocked")
	}
}

func TestPlaybackDrainFinishesCurrentOnly(t *testing.T) {
	snd := &recordingSender{delay: 100 * time.Millisecond}
	q := NewPlaybackQueue(snd, 8, time.Second, "chan")
	q.Start()

	for i := 0; i < 4; i++ {
		if err := q.Enqueue(PlaybackItem{PCM: make([]int16, i+1), SampleRate: 48000}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	waitFor(t, func() bool { return atomic.LoadInt32(&snd.inFlight) == 1 })
	q.Close()

	got := snd.playedLens()
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("plays after drain = %v, want only the in-flight item", got)
	}
	if atomic.LoadInt32(&snd.cancelled) != 0 {
		t.Fatal("in-flight item was cancelled instead of finishing")
	}
	if err := q.Enqueue(PlaybackItem{PCM: make([]int16, 1), SampleRate: 48000}); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("enqueue after close = %v, want ErrSessionClosed", err)
	}
}
