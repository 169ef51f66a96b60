// Package events carries run events from the orchestrator to whatever is
// watching: a terminal view, a log, or a message bus.
package events

import (
	"context"

	"github.com/Paxxs/moledao-spider/internal/model"
)

type Kind string

const (
	KindStatus   Kind = "status"
	KindLog      Kind = "log"
	KindJobBatch Kind = "job-batch"
	KindProgress Kind = "progress"
	KindSummary  Kind = "summary"
)

// Event is one typed payload; exactly one payload field is set, matching Kind.
type Event struct {
	Kind     Kind               `json:"kind"`
	Status   model.RunStatus    `json:"status,omitempty"`
	Log      *model.LogEntry    `json:"log,omitempty"`
	Batch    []model.TickerItem `json:"batch,omitempty"`
	Progress *model.Progress    `json:"progress,omitempty"`
	Summary  *model.RunSummary  `json:"summary,omitempty"`
}

// Sink receives events in emission order. Delivery problems stay inside the
// sink; a run never fails because an observer could not be reached.
type Sink interface {
	Emit(ctx context.Context, ev Event)
}

type SinkFunc func(ctx context.Context, ev Event)

func (f SinkFunc) Emit(ctx context.Context, ev Event) {
	f(ctx, ev)
}

func StatusEvent(s model.RunStatus) Event {
	return Event{Kind: KindStatus, Status: s}
}

func LogEvent(entry model.LogEntry) Event {
	return Event{Kind: KindLog, Log: &entry}
}

func BatchEvent(batch []model.TickerItem) Event {
	return Event{Kind: KindJobBatch, Batch: append([]model.TickerItem(nil), batch...)}
}

func ProgressEvent(processed, total int) Event {
	return Event{Kind: KindProgress, Progress: &model.Progress{Processed: processed, Total: total}}
}

func SummaryEvent(summary model.RunSummary) Event {
	return Event{Kind: KindSummary, Summary: &summary}
}

// Multi fans every event out to each sink in order.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, ev Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, ev)
		}
	}
}

type discard struct{}

func (discard) Emit(context.Context, Event) {}

// Discard drops every event.
var Discard Sink = discard{}
