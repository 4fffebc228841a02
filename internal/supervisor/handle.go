package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/CZERTAINLY/jobvisor/internal/job"
	"github.com/CZERTAINLY/jobvisor/internal/log"
)

// ErrAborted is the cancellation cause used by Handle.Abort.
var ErrAborted = errors.New("job aborted by supervisor")

// PanicError is the failure cause of a job which panicked.
type PanicError struct {
	Value any
	Stack string
}

func (e PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

type outcome struct {
	result  string
	err     error
	started time.Time
	stopped time.Time
}

// Handle is a cancellable, awaitable reference to a spawned job.
type Handle struct {
	id      uint32
	payload string
	job     job.Job
	cancel  context.CancelCauseFunc
	done    chan struct{}
	out     outcome

	abortOnce   sync.Once
	abortedAt   time.Time
	awaitCalled bool
}

func newHandle(j job.Job) *Handle {
	return &Handle{
		id:      j.ID(),
		payload: j.Payload(),
		job:     j,
		done:    make(chan struct{}),
	}
}

// start spawns the job in its own goroutine, which owns the job from now on.
func (h *Handle) start(ctx context.Context, wg *sync.WaitGroup) {
	j := h.job
	h.job = job.Job{}
	jctx, cancel := context.WithCancelCause(ctx)
	jctx = log.ContextAttrs(jctx, slog.Uint64("job_id", uint64(j.ID())))
	h.cancel = cancel

	wg.Go(func() {
		defer close(h.done)
		slog.InfoContext(jctx, "starting job", "job", j.String())
		h.out = execute(jctx, j)
		if h.out.err != nil {
			slog.DebugContext(jctx, "job finished", "error", h.out.err)
		} else {
			slog.InfoContext(jctx, "job finished", "result", h.out.result)
		}
	})
}

func execute(ctx context.Context, j job.Job) (out outcome) {
	out.started = time.Now()
	defer func() {
		if r := recover(); r != nil {
			stack := string(debug.Stack())
			slog.ErrorContext(ctx, "job panicked", "panic", r, "stack", stack)
			out.result = ""
			out.err = PanicError{Value: r, Stack: stack}
		}
		out.stopped = time.Now()
	}()
	out.result, out.err = j.Execute(ctx)
	return out
}

func (h *Handle) ID() uint32 { return h.id }

// Abort requests a cooperative cancellation. Only the first call has an
// effect; aborting a finished job is a no-op.
func (h *Handle) Abort() {
	h.abortOnce.Do(func() {
		h.abortedAt = time.Now()
		if h.cancel != nil {
			h.cancel(ErrAborted)
		}
	})
}

// Await blocks until the job reaches a terminal state and classifies it.
// It must be called once.
func (h *Handle) Await() (Record, error) {
	if h.awaitCalled {
		return Record{}, fmt.Errorf("job %d: %w", h.id, ErrAwaited)
	}
	h.awaitCalled = true
	<-h.done
	// release the context of jobs which were never aborted
	if h.cancel != nil {
		h.cancel(nil)
	}

	rec := Record{
		ID:                h.id,
		Payload:           h.payload,
		CancelRequested:   !h.abortedAt.IsZero(),
		CancelRequestedAt: h.abortedAt,
		CollectedAt:       time.Now(),
		Duration:          h.out.stopped.Sub(h.out.started),
	}
	err := h.out.err
	switch {
	case err == nil:
		rec.Status = StatusCompleted
		rec.Result = h.out.result
	case rec.CancelRequested && errors.Is(err, context.Canceled):
		rec.Status = StatusCancelled
	default:
		rec.Status = StatusFailed
		rec.Cause = err.Error()
		rec.err = err
	}
	return rec, nil
}
