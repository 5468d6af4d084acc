package queue

import (
	"strings"
	"time"

	"spool/internal/task"
)

// Status represents the lifecycle of a task record. The numeric values are
// part of the persisted schema and must not be reassigned.
type Status int

const (
	StatusFailed  Status = -1
	StatusPending Status = 0
	StatusRunning Status = 1
	StatusDone    Status = 2
)

var allStatuses = []Status{StatusPending, StatusRunning, StatusDone, StatusFailed}

func (s Status) String() string {
	switch s {
	case StatusFailed:
		return "failed"
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusDone:
		return "done"
	default:
		return "unknown"
	}
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "failed":
		return StatusFailed, true
	case "pending":
		return StatusPending, true
	case "running":
		return StatusRunning, true
	case "done":
		return StatusDone, true
	default:
		return StatusPending, false
	}
}

// Record is one persisted task. OID is assigned by the store on enqueue and
// is immutable afterwards; a task that has never been enqueued has no OID
// anywhere, which is why the identity lives here and not on task.Task.
type Record struct {
	OID       int64
	Priority  int
	Payload   []byte
	Status    Status
	Owner     string // set iff Status is StatusRunning
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Task deserializes the record payload without re-validating filesystem
// preconditions. Callers that are about to execute re-validate via Run.
func (r *Record) Task() (task.Task, error) {
	return task.Unmarshal(r.Payload, false)
}

// Summary aggregates record counts per lifecycle state.
type Summary struct {
	Pending int
	Running int
	Done    int
	Failed  int
	Total   int
}
