package progress

import (
	"go.uber.org/zap"
)

// LogSink reports progress tuples through zap. It is fire-and-forget: the
// pipeline never depends on it.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a progress sink on the given logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger.Named("progress")}
}

// Report implements feed.Progress.
func (s *LogSink) Report(current, total int, status string) {
	s.logger.Debug(status,
		zap.Int("current", current),
		zap.Int("total", total),
	)
}
