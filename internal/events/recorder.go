package events

import (
	"context"
	"sync"

	"github.com/Paxxs/moledao-spider/internal/model"
)

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Emit(_ context.Context, ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) OfKind(kind Kind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Event{}
	for _, ev := range r.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func (r *Recorder) Statuses() []model.RunStatus {
	out := []model.RunStatus{}
	for _, ev := range r.OfKind(KindStatus) {
		out = append(out, ev.Status)
	}
	return out
}

func (r *Recorder) Messages() []string {
	out := []string{}
	for _, ev := range r.OfKind(KindLog) {
		out = append(out, ev.Log.Message)
	}
	return out
}

func (r *Recorder) Progress() []model.Progress {
	out := []model.Progress{}
	for _, ev := range r.OfKind(KindProgress) {
		out = append(out, *ev.Progress)
	}
	return out
}

func (r *Recorder) Batches() [][]model.TickerItem {
	out := [][]model.TickerItem{}
	for _, ev := range r.OfKind(KindJobBatch) {
		out = append(out, ev.Batch)
	}
	return out
}

func (r *Recorder) Summaries() []model.RunSummary {
	out := []model.RunSummary{}
	for _, ev := range r.OfKind(KindSummary) {
		out = append(out, *ev.Summary)
	}
	return out
}
