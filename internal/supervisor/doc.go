// Package supervisor spawns a bounded set of jobs and stops them gracefully.
//
// A run goes through the states
//
//	idle -> spawning -> running -> shutting_down -> collecting -> done
//
// where shutting_down is skipped when every job finished before any shutdown
// source fired.
//
//	Supervisor               Handle{id}                  job.Job
//	    |                        |                          |
//	    | subscribe sources      |                          |
//	    | start() -------------->| goroutine -------------->| Execute(ctx)
//	    | wait: First(sources) or all done                  |
//	    | Abort() -------------->| cancel(ErrAborted) ----->| ctx.Done()
//	    | Take() + Await() ----->| <-done <-----------------| returns
//	    |<------ Record ---------|                          |
//
// Invariants:
//   - the registry is insert only until frozen, then take only
//   - each handle is aborted at most once and awaited exactly once
//   - every abort is issued before the first handle is collected
//   - records are produced in registry (insertion) order, one per job
//   - a failing or panicking job never affects the status of another one
//
// Cancellation is cooperative. A job which does not watch its context
// delays the collection until it returns on its own.
package supervisor
