package schema

import (
	"encoding/json"
	"fmt"
)

// Status is the validity of a routine graph. Values are ordered by
// severity so the worst of several statuses is their maximum.
type Status int

const (
	StatusValid Status = iota
	StatusIncomplete
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusIncomplete:
		return "incomplete"
	case StatusInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalJSON encodes the status by name.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a status name.
func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "valid":
		*s = StatusValid
	case "incomplete":
		*s = StatusIncomplete
	case "invalid":
		*s = StatusInvalid
	default:
		return fmt.Errorf("unknown status %q", name)
	}
	return nil
}

// Worst returns the more severe of two statuses.
func Worst(a, b Status) Status {
	if a > b {
		return a
	}
	return b
}

// Issue codes reported by graph analysis.
const (
	IssuePositionCollision = "POSITION_COLLISION"
	IssueStartCount        = "START_COUNT"
	IssueEntryCount        = "ENTRY_COUNT"
	IssueEntryNotStart     = "ENTRY_NOT_START"
	IssueDanglingPath      = "DANGLING_PATH"
	IssueUnreachable       = "UNREACHABLE"
	IssueOffGraph          = "OFF_GRAPH"
	IssueEmptyRoutineList  = "EMPTY_ROUTINE_LIST"
)

// Issue is a single failed check with the status it implies.
type Issue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  Status `json:"status"`
	NodeID  string `json:"node_id,omitempty"`
}

// StatusReport aggregates every failed check of one analysis pass.
type StatusReport struct {
	Status Status  `json:"status"`
	Issues []Issue `json:"issues,omitempty"`
}

// Valid returns true if no check failed.
func (r *StatusReport) Valid() bool {
	return r.Status == StatusValid
}

// AddInvalid records an issue that makes the routine unusable.
func (r *StatusReport) AddInvalid(code, message string) {
	r.Add(Issue{Code: code, Message: message, Status: StatusInvalid})
}

// AddIncomplete records an issue that only marks the routine unfinished.
func (r *StatusReport) AddIncomplete(code, message string) {
	r.Add(Issue{Code: code, Message: message, Status: StatusIncomplete})
}

// Add records an issue and raises the report status to match it.
func (r *StatusReport) Add(issue Issue) {
	r.Issues = append(r.Issues, issue)
	r.Status = Worst(r.Status, issue.Status)
}

// Merge combines another StatusReport into this one.
func (r *StatusReport) Merge(other *StatusReport) {
	if other == nil {
		return
	}
	for _, issue := range other.Issues {
		r.Add(issue)
	}
}

// Messages returns the human-readable messages in check order.
func (r *StatusReport) Messages() []string {
	msgs := make([]string, 0, len(r.Issues))
	for _, issue := range r.Issues {
		msgs = append(msgs, issue.Message)
	}
	return msgs
}

// ToError converts the report to a RoutineError when the routine is
// invalid, nil otherwise. Incomplete routines are not errors.
func (r *StatusReport) ToError() error {
	if r.Status != StatusInvalid {
		return nil
	}

	var invalid []Issue
	for _, issue := range r.Issues {
		if issue.Status == StatusInvalid {
			invalid = append(invalid, issue)
		}
	}

	msg := "routine is invalid"
	if len(invalid) == 1 {
		msg = invalid[0].Message
	} else if len(invalid) > 1 {
		msg = fmt.Sprintf("routine is invalid with %d errors", len(invalid))
	}

	return NewError(ErrCodeValidation, msg).
		WithDetails(map[string]any{
			"issue_count": len(r.Issues),
			"issues":      r.Issues,
		})
}
