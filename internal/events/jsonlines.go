package events

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"go.uber.org/zap"
)

// JSONLines writes each event as one JSON object per line.
type JSONLines struct {
	mu     sync.Mutex
	enc    *json.Encoder
	logger *zap.Logger
}

func NewJSONLines(w io.Writer, logger *zap.Logger) *JSONLines {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONLines{enc: json.NewEncoder(w), logger: logger}
}

func (j *JSONLines) Emit(_ context.Context, ev Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.enc.Encode(ev); err != nil {
		j.logger.Warn("failed to write event", zap.String("kind", string(ev.Kind)), zap.Error(err))
	}
}
