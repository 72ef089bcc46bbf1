package model

import "fmt"

// TaskStatus is the lifecycle state of a batch task.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusRunning   TaskStatus = "running"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
)

var allowedTransitions = map[TaskStatus]map[TaskStatus]bool{
	StatusPending: {
		StatusRunning: true,
		StatusFailed:  true, // orchestration failed before any work started
	},
	StatusRunning: {
		StatusCompleted: true,
		StatusFailed:    true,
	},
	StatusCompleted: {},
	StatusFailed:    {},
}

// IsKnownStatus reports whether s is one of the defined statuses.
func IsKnownStatus(s TaskStatus) bool {
	_, ok := allowedTransitions[s]
	return ok
}

// IsTerminal reports whether no further transitions are possible from s.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether a task may move from one status to another.
func CanTransition(from, to TaskStatus) bool {
	return allowedTransitions[from][to]
}

// ValidateTransition returns an error describing an invalid transition.
func ValidateTransition(from, to TaskStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid task status transition: %q -> %q", from, to)
	}
	return nil
}
