// Package model holds the records, event payloads and the run status machine.
//
// Run status graph:
//
//	"" ──> idle ──> running ──> completed ──┐
//	        ^          │  └──> error ───────┤
//	        └──────────┘ (cancelled)        │
//	                   ^────────────────────┘ (new run)
package model

import "fmt"

type RunStatus string

const (
	StatusIdle      RunStatus = "idle"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusError     RunStatus = "error"
)

var allowedTransitions = map[RunStatus]map[RunStatus]bool{
	"": {
		StatusIdle: true,
	},
	StatusIdle: {
		StatusRunning: true,
	},
	StatusRunning: {
		StatusCompleted: true,
		StatusError:     true,
		StatusIdle:      true, // cancelled
	},
	StatusCompleted: {
		StatusRunning: true,
	},
	StatusError: {
		StatusRunning: true,
	},
}

func IsKnownStatus(status RunStatus) bool {
	_, ok := allowedTransitions[status]
	return ok && status != ""
}

func ParseStatus(raw string) (RunStatus, error) {
	s := RunStatus(raw)
	if !IsKnownStatus(s) {
		return "", fmt.Errorf("unknown run status %q", raw)
	}
	return s, nil
}

func CanTransition(from, to RunStatus) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

func TransitionStatus(current *RunStatus, to RunStatus) error {
	from := *current
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid run status transition: %q -> %q", from, to)
	}
	*current = to
	return nil
}
