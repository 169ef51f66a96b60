package events

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Paxxs/moledao-spider/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMultiFansOutInOrder(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	var order []string
	tap := SinkFunc(func(_ context.Context, ev Event) {
		order = append(order, string(ev.Kind))
	})
	m := Multi{a, nil, tap, b}

	ctx := context.Background()
	m.Emit(ctx, StatusEvent(model.StatusRunning))
	m.Emit(ctx, ProgressEvent(1, 2))
	m.Emit(ctx, SummaryEvent(model.RunSummary{OutputDirectory: "/out", Files: []string{"jobs-001.docx"}}))

	assert.Equal(t, []string{"status", "progress", "summary"}, order)
	assert.Equal(t, a.Events(), b.Events())
	assert.Equal(t, []model.RunStatus{model.StatusRunning}, a.Statuses())
	assert.Equal(t, []model.Progress{{Processed: 1, Total: 2}}, a.Progress())
	require.Len(t, a.Summaries(), 1)
	assert.Equal(t, "/out", a.Summaries()[0].OutputDirectory)
}

func TestBatchEventCopiesBuffer(t *testing.T) {
	buf := []model.TickerItem{{ID: "1"}, {ID: "2"}}
	ev := BatchEvent(buf)
	buf[0].ID = "changed"
	assert.Equal(t, "1", ev.Batch[0].ID)
}

func TestJSONLinesWritesOneObjectPerEvent(t *testing.T) {
	var out bytes.Buffer
	sink := NewJSONLines(&out, nil)
	ctx := context.Background()

	sink.Emit(ctx, StatusEvent(model.StatusRunning))
	sink.Emit(ctx, LogEvent(model.LogEntry{ID: "x", Timestamp: 5, Level: model.LevelInfo, Message: "hello"}))
	sink.Emit(ctx, BatchEvent([]model.TickerItem{{ID: "1", Company: "Acme", Title: "Dev", Preference: "Hybrid"}}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)

	var status map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &status))
	assert.Equal(t, "status", status["kind"])
	assert.Equal(t, "running", status["status"])
	assert.NotContains(t, status, "log")

	var log Event
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &log))
	require.NotNil(t, log.Log)
	assert.Equal(t, "hello", log.Log.Message)

	assert.Contains(t, lines[2], `"kind":"job-batch"`)
	assert.Contains(t, lines[2], `"preference":"Hybrid"`)
}

func TestLogSinkMapsLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewLogSink(zap.New(core))
	ctx := context.Background()

	sink.Emit(ctx, LogEvent(model.LogEntry{ID: "1", Level: model.LevelInfo, Message: "[Acme][Dev]-[Hybrid]"}))
	sink.Emit(ctx, LogEvent(model.LogEntry{ID: "2", Level: model.LevelError, Message: "Scrape failed: boom"}))
	sink.Emit(ctx, ProgressEvent(1, 3))

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "[Acme][Dev]-[Hybrid]", entries[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, zapcore.DebugLevel, entries[2].Level)
	assert.Equal(t, int64(3), entries[2].ContextMap()["total"])
}

func TestTransportNaming(t *testing.T) {
	n := newNATSSink(nil, "", zap.NewNop())
	assert.Equal(t, "moledao.scrape.job-batch", n.Subject(KindJobBatch))

	r := NewRedisSink(nil, "jobs", zap.NewNop())
	assert.Equal(t, "jobs:summary", r.Channel(KindSummary))
}
