package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voicebot_active_sessions",
		Help: "Number of active voice sessions",
	})

	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voicebot_turns_total",
		Help: "Voice turns processed, by outcome",
	}, []string{"result"})

	stageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voicebot_stage_latency_seconds",
		Help:    "Latency of pipeline stages",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	}, []string{"stage"})

	queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "voicebot_playback_queue_depth",
		Help: "Playback requests waiting per session",
	}, []string{"channel"})

	queueRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicebot_playback_queue_rejections_total",
		Help: "Playback requests rejected because the queue was full",
	})

	hotwordDetections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voicebot_hotword_detections_total",
		Help: "Hotword detections, including false positives discarded downstream",
	})
)

// SessionOpened / SessionClosed track the active session gauge.
func SessionOpened() { activeSessions.Inc() }
func SessionClosed() { activeSessions.Dec() }

// TurnResult records one completed turn. result is one of: ok, stt_failed,
// no_wake_phrase, empty_transcript, empty_utterance, no_reply, tts_failed,
// bad_audio, queue_full, cancelled.
func TurnResult(result string) { turnsTotal.WithLabelValues(result).Inc() }

// ObserveStage records the wall-clock duration of one pipeline stage.
func ObserveStage(stage string, d time.Duration) {
	stageLatency.WithLabelValues(stage).Observe(d.Seconds())
}

// SetQueueDepth publishes the current playback backlog for a session.
func SetQueueDepth(channelID string, depth int) {
	queueDepth.WithLabelValues(channelID).Set(float64(depth))
}

// DropQueueDepth removes the per-session gauge when the session closes.
func DropQueueDepth(channelID string) {
	queueDepth.DeleteLabelValues(channelID)
}

func QueueRejected()   { queueRejections.Inc() }
func HotwordDetected() { hotwordDetections.Inc() }

// Serve exposes /metrics and /healthz on addr. It blocks, so callers run it
// in a goroutine; errors other than server-closed are returned.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return http.ListenAndServe(addr, mux)
}
