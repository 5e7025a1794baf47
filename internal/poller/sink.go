package poller

import "github.com/ravoegtlin/molbox-tester/internal/logger"

// LogSink renders events through the process logger, which writes each one
// to stdout as "<timestamp> - <LEVEL> - <message>".
type LogSink struct{}

func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) Emit(event Event) {
	switch event.Level {
	case LevelError:
		logger.Error().Msg(event.Message)
	default:
		logger.Info().Msg(event.Message)
	}
}
