package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultLatency is how long a job without custom work pretends to run.
const DefaultLatency = 5000 * time.Millisecond

// WorkFunc is the generalized payload of a Job. It must return once ctx is
// done, otherwise the job can't be interrupted.
type WorkFunc func(ctx context.Context) (string, error)

// Job is an identity-bearing unit of asynchronous work.
// It is immutable after New and owned by the goroutine executing it.
type Job struct {
	id      uint32
	payload string
	latency time.Duration
	work    WorkFunc
}

type Option func(*Job)

// WithLatency changes the simulated duration of the default work.
func WithLatency(d time.Duration) Option {
	return func(j *Job) { j.latency = d }
}

// WithWork replaces the default sleep with a custom operation.
func WithWork(fn WorkFunc) Option {
	return func(j *Job) { j.work = fn }
}

func New(id uint32, payload string, opts ...Option) Job {
	j := Job{
		id:      id,
		payload: payload,
		latency: DefaultLatency,
	}
	for _, o := range opts {
		o(&j)
	}
	return j
}

func (j Job) ID() uint32      { return j.id }
func (j Job) Payload() string { return j.payload }

// Execute runs the job. Default work sleeps for the configured latency and
// returns early with ctx.Err() when ctx is cancelled.
func (j Job) Execute(ctx context.Context) (string, error) {
	slog.DebugContext(ctx, "running job", "job_id", j.id, "payload", j.payload)
	if j.work != nil {
		return j.work(ctx)
	}

	timer := time.NewTimer(j.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
	}
	return fmt.Sprintf("Job %d ran for %dms", j.id, j.latency.Milliseconds()), nil
}

func (j Job) String() string {
	return fmt.Sprintf("Job { id: %d, payload: %s }", j.id, j.payload)
}
