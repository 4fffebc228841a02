package supervisor

import (
	"fmt"
	"time"

	"github.com/CZERTAINLY/jobvisor/internal/shutdown"
)

type State int

const (
	StateIdle State = iota
	StateSpawning
	StateRunning
	StateShuttingDown
	StateCollecting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSpawning:
		return "spawning"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateCollecting:
		return "collecting"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a terminal classification of a job.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Record is a final disposition of a single job.
type Record struct {
	ID                uint32        `json:"id" yaml:"id"`
	Payload           string        `json:"payload" yaml:"payload"`
	Status            Status        `json:"status" yaml:"status"`
	Result            string        `json:"result,omitempty" yaml:"result,omitempty"`
	Cause             string        `json:"cause,omitempty" yaml:"cause,omitempty"`
	CancelRequested   bool          `json:"cancel_requested" yaml:"cancel_requested"`
	CancelRequestedAt time.Time     `json:"cancel_requested_at,omitzero" yaml:"cancel_requested_at,omitempty"`
	CollectedAt       time.Time     `json:"collected_at" yaml:"collected_at"`
	Duration          time.Duration `json:"duration" yaml:"duration"`

	err error
}

// Err returns the failure cause of a Failed job, nil otherwise.
func (r Record) Err() error { return r.err }

// String renders the record the way the text report prints it.
func (r Record) String() string {
	switch r.Status {
	case StatusCompleted:
		if r.CancelRequested {
			return fmt.Sprintf("Job %d completed before shutdown", r.ID)
		}
		return fmt.Sprintf("Job %d completed: %s", r.ID, r.Result)
	case StatusCancelled:
		return fmt.Sprintf("Job %d was cancelled", r.ID)
	case StatusFailed:
		return fmt.Sprintf("Job %d failed: %s", r.ID, r.Cause)
	default:
		return fmt.Sprintf("Job %d: unknown status %q", r.ID, r.Status)
	}
}

// Report summarizes a whole run.
type Report struct {
	RunID   string          `json:"run_id" yaml:"run_id"`
	Started time.Time       `json:"started" yaml:"started"`
	Stopped time.Time       `json:"stopped" yaml:"stopped"`
	Trigger *shutdown.Event `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	States  []State         `json:"states" yaml:"states"`
	Records []Record        `json:"records" yaml:"records"`
}

// Count returns a number of records with a given status.
func (r Report) Count(status Status) int {
	var n int
	for _, rec := range r.Records {
		if rec.Status == status {
			n++
		}
	}
	return n
}
