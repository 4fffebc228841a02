package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CZERTAINLY/jobvisor/internal/job"
	"github.com/CZERTAINLY/jobvisor/internal/log"
	"github.com/CZERTAINLY/jobvisor/internal/shutdown"
)

// StartupError is returned when a shutdown source can't be subscribed.
// No job is spawned in that case.
type StartupError struct {
	Source string
	Err    error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("startup: subscribing shutdown source %q: %s", e.Source, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

// TransitionFunc observes state changes of a run. It is called synchronously
// from the goroutine executing Run.
type TransitionFunc func(from, to State)

type Supervisor struct {
	sources []shutdown.Source
	onState TransitionFunc
}

type Option func(*Supervisor)

func WithTransitionHook(fn TransitionFunc) Option {
	return func(s *Supervisor) { s.onState = fn }
}

func New(sources []shutdown.Source, opts ...Option) *Supervisor {
	s := &Supervisor{
		sources: append([]shutdown.Source(nil), sources...),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// run holds the state of a single Run call.
type run struct {
	s      *Supervisor
	report Report
	state  State
}

func (r *run) transition(ctx context.Context, to State) {
	from := r.state
	r.state = to
	r.report.States = append(r.report.States, to)
	slog.DebugContext(ctx, "supervisor state", "from", from.String(), "to", to.String())
	if r.s.onState != nil {
		r.s.onState(from, to)
	}
}

// Run spawns all jobs, waits for their natural completion or for the first
// shutdown event, cancels the outstanding jobs and collects the status of each.
//
// Cancellation of ctx is treated as a shutdown request. Per job failures are
// reported in Report.Records; the returned error is either a validation error
// or a *StartupError.
func (s *Supervisor) Run(ctx context.Context, jobs []job.Job) (Report, error) {
	r := &run{
		s:     s,
		state: StateIdle,
		report: Report{
			RunID:   uuid.NewString(),
			Started: time.Now(),
			States:  []State{StateIdle},
		},
	}
	ctx = log.ContextAttrs(ctx, slog.String("run_id", r.report.RunID))

	reg := newRegistry(len(jobs))
	for _, j := range jobs {
		if err := reg.Insert(newHandle(j)); err != nil {
			return r.report, err
		}
	}
	reg.Freeze()

	// sources stay subscribed until Run returns, so signals repeated while
	// collecting are absorbed instead of killing the process
	subCtx, unsubscribe := context.WithCancel(context.WithoutCancel(ctx))
	defer unsubscribe()
	subs, err := s.subscribe(subCtx)
	if err != nil {
		slog.ErrorContext(ctx, "can't subscribe shutdown source", "error", err)
		return r.report, err
	}

	r.transition(ctx, StateSpawning)
	var wg sync.WaitGroup
	// jobs are cancelled only via their handles
	jobCtx := context.WithoutCancel(ctx)
	reg.Each(func(h *Handle) { h.start(jobCtx, &wg) })
	slog.DebugContext(ctx, "jobs spawned", "ids", reg.IDs())

	allDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(allDone)
	}()

	r.transition(ctx, StateRunning)
	// later events have no effect
	trigger := r.wait(ctx, shutdown.First(subCtx, subs...), allDone)

	if trigger != nil {
		r.report.Trigger = trigger
		r.transition(ctx, StateShuttingDown)
		slog.InfoContext(ctx, "cancelling jobs", "source", trigger.Source, "jobs", reg.Len())
		reg.Each(func(h *Handle) { h.Abort() })
	}

	r.transition(ctx, StateCollecting)
	r.report.Records = collect(ctx, reg)

	r.report.Stopped = time.Now()
	r.transition(ctx, StateDone)
	return r.report, nil
}

// wait returns the first shutdown event, or nil when all jobs finished on their own.
func (r *run) wait(ctx context.Context, events <-chan shutdown.Event, allDone <-chan struct{}) *shutdown.Event {
	for {
		select {
		case <-allDone:
			slog.DebugContext(ctx, "all jobs finished before shutdown")
			return nil
		case <-ctx.Done():
			slog.InfoContext(ctx, "shutdown requested", "source", "context", "cause", context.Cause(ctx))
			return &shutdown.Event{Source: "context", At: time.Now()}
		case ev, ok := <-events:
			if !ok {
				// no source is able to fire anymore
				events = nil
				continue
			}
			slog.InfoContext(ctx, "shutdown requested", "source", ev.Source)
			return &ev
		}
	}
}

func (s *Supervisor) subscribe(ctx context.Context) ([]shutdown.Subscription, error) {
	subs := make([]shutdown.Subscription, 0, len(s.sources))
	for _, src := range s.sources {
		if src == nil {
			return nil, &StartupError{Source: "<nil>", Err: errors.New("source is nil")}
		}
		ch, err := src.Subscribe(ctx)
		if err != nil {
			return nil, &StartupError{Source: src.Name(), Err: err}
		}
		subs = append(subs, shutdown.Subscription{Name: src.Name(), C: ch})
	}
	return subs, nil
}

func collect(ctx context.Context, reg *registry) []Record {
	records := make([]Record, 0, reg.Len())
	for _, id := range reg.IDs() {
		h, err := reg.Take(id)
		if err != nil {
			slog.ErrorContext(ctx, "can't take a handle", "job_id", id, "error", err)
			continue
		}
		rec, err := h.Await()
		if err != nil {
			slog.ErrorContext(ctx, "can't await a handle", "job_id", id, "error", err)
			continue
		}
		switch rec.Status {
		case StatusCompleted:
			slog.InfoContext(ctx, "job completed", "job_id", id, "cancel_requested", rec.CancelRequested)
		case StatusCancelled:
			slog.InfoContext(ctx, "job was cancelled", "job_id", id)
		case StatusFailed:
			slog.ErrorContext(ctx, "job failed", "job_id", id, "error", rec.Err())
		}
		records = append(records, rec)
	}
	return records
}
