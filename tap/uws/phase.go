package uws

import "strings"

// Phase is a job's execution state as reported by the service.
// Server strings are mapped case-insensitively; anything outside the
// standard set maps to PhaseUnknown so that a future server-side phase
// degrades to "still running" rather than a parse failure.
type Phase int

const (
	PhaseUnknown Phase = iota
	PhasePending
	PhaseQueued
	PhaseExecuting
	PhaseCompleted
	PhaseError
	PhaseAborted
	PhaseHeld
	PhaseSuspended
	PhaseArchived
)

var phaseNames = map[Phase]string{
	PhaseUnknown:   "UNKNOWN",
	PhasePending:   "PENDING",
	PhaseQueued:    "QUEUED",
	PhaseExecuting: "EXECUTING",
	PhaseCompleted: "COMPLETED",
	PhaseError:     "ERROR",
	PhaseAborted:   "ABORTED",
	PhaseHeld:      "HELD",
	PhaseSuspended: "SUSPENDED",
	PhaseArchived:  "ARCHIVED",
}

// ParsePhase maps a server-supplied phase string to a Phase.
func ParsePhase(s string) Phase {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return PhasePending
	case "queued":
		return PhaseQueued
	case "executing":
		return PhaseExecuting
	case "completed":
		return PhaseCompleted
	case "error":
		return PhaseError
	case "aborted":
		return PhaseAborted
	case "held":
		return PhaseHeld
	case "suspended":
		return PhaseSuspended
	case "archived":
		return PhaseArchived
	default:
		return PhaseUnknown
	}
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}

	return "UNKNOWN"
}

// Terminal reports whether polling should stop on this phase. The
// service only ever finishes jobs as COMPLETED or ERROR; every other
// phase, including ABORTED, is treated as still in flight.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseError
}
