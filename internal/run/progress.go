package run

import "github.com/rendis/routinegraph/internal/steps"

// Move is the outcome of a navigation call.
type Move struct {
	// Location is the step now open; nil once the run is done.
	Location steps.Location `json:"location,omitempty"`
	// NeedsExpansion is set when the open step is a subroutine whose
	// graph has not been fetched yet. The host fetches it and calls Expand.
	NeedsExpansion bool `json:"needsExpansion,omitempty"`
	// AwaitingChoice is set when the open step is a decision: ToNext
	// cannot leave it, the host calls Choose instead.
	AwaitingChoice bool `json:"awaitingChoice,omitempty"`
	Done           bool `json:"done,omitempty"`
}

// StepRecord is the telemetry folded for one step location.
type StepRecord struct {
	Location           steps.Location `json:"location"`
	TimeElapsedSeconds int            `json:"timeElapsedSeconds"`
	ContextSwitches    int            `json:"contextSwitches"`
	Visits             int            `json:"visits"`
}

// Choice records a link picked at a decision.
type Choice struct {
	Location steps.Location `json:"location"`
	NodeID   string         `json:"nodeId"`
	LinkID   string         `json:"linkId"`
}

// Progress is the run record handed to the run-logging layer.
type Progress struct {
	RunID               string           `json:"runId"`
	RoutineID           string           `json:"routineId"`
	Current             steps.Location   `json:"current,omitempty"`
	CompletedComplexity int              `json:"completedComplexity"`
	TotalComplexity     int              `json:"totalComplexity"`
	PercentComplete     float64          `json:"percentComplete"`
	Visited             []steps.Location `json:"visited"`
	Steps               []StepRecord     `json:"steps"`
	Choices             []Choice         `json:"choices,omitempty"`
	Done                bool             `json:"done"`
}
