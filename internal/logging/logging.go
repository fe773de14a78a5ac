package logging

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	sugar *zap.SugaredLogger
	once  sync.Once
)

// Init initializes the global sugared logger at the given level and redirects
// the standard library logger to zap. It's safe to call multiple times; only
// the first call takes effect.
func Init(level string) *zap.SugaredLogger {
	once.Do(func() {
		var logger *zap.Logger
		switch strings.ToLower(strings.TrimSpace(level)) {
		case "debug":
			l, _ := zap.NewDevelopment()
			logger = l
		case "warn":
			cfg := zap.NewProductionConfig()
			cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
			l, _ := cfg.Build()
			logger = l
		default:
			l, _ := zap.NewProduction()
			logger = l
		}
		// Redirect standard library logs into zap so all logs are unified.
		_ = zap.RedirectStdLog(logger)
		zap.ReplaceGlobals(logger)
		sugar = logger.Sugar()
	})
	return sugar
}

// Sugar returns the initialized sugared logger. Call Init first; if Init was
// never called a production logger is installed implicitly.
func Sugar() *zap.SugaredLogger {
	if sugar == nil {
		return Init("info")
	}
	return sugar
}

// Sync flushes buffered log entries. Call on shutdown.
func Sync() {
	if sugar != nil {
		_ = sugar.Sync()
	}
}

// Convenience wrappers mirroring zap's sugared API so call sites stay terse.

func Debugw(msg string, kv ...interface{}) { Sugar().Debugw(msg, kv...) }
func Infow(msg string, kv ...interface{})  { Sugar().Infow(msg, kv...) }
func Warnw(msg string, kv ...interface{})  { Sugar().Warnw(msg, kv...) }
func Errorw(msg string, kv ...interface{}) { Sugar().Errorw(msg, kv...) }

// TurnFields builds the standard key/value pairs attached to every log line
// that belongs to one voice turn.
func TurnFields(speakerID, correlationID string) []interface{} {
	return []interface{}{"speaker_id", speakerID, "correlation_id", correlationID}
}
