package events

import (
	"context"

	"github.com/Paxxs/moledao-spider/internal/model"

	"go.uber.org/zap"
)

type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(_ context.Context, ev Event) {
	switch ev.Kind {
	case KindLog:
		if ev.Log == nil {
			return
		}
		if ev.Log.Level == model.LevelError {
			s.logger.Error(ev.Log.Message, zap.String("entry_id", ev.Log.ID))
			return
		}
		s.logger.Info(ev.Log.Message, zap.String("entry_id", ev.Log.ID))
	case KindStatus:
		s.logger.Info("scrape status", zap.String("status", string(ev.Status)))
	case KindProgress:
		if ev.Progress != nil {
			s.logger.Debug("scrape progress",
				zap.Int("processed", ev.Progress.Processed),
				zap.Int("total", ev.Progress.Total))
		}
	case KindJobBatch:
		s.logger.Debug("job batch", zap.Int("size", len(ev.Batch)))
	case KindSummary:
		if ev.Summary != nil {
			s.logger.Info("export summary",
				zap.String("output_directory", ev.Summary.OutputDirectory),
				zap.Strings("files", ev.Summary.Files))
		}
	}
}
