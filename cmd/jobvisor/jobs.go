package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/CZERTAINLY/jobvisor/internal/job"
	"github.com/CZERTAINLY/jobvisor/internal/model"
	"github.com/CZERTAINLY/jobvisor/internal/shutdown"
)

// jobsFromConfig creates jobs with sequential identities 0..count-1.
func jobsFromConfig(cfg model.Jobs) ([]job.Job, error) {
	if cfg.Count < 0 {
		return nil, fmt.Errorf("jobs.count must not be negative: %d", cfg.Count)
	}
	latency, err := cfg.LatencyDuration()
	if err != nil {
		return nil, err
	}

	jobs := make([]job.Job, 0, cfg.Count)
	for i := range cfg.Count {
		opts := []job.Option{job.WithLatency(latency)}
		if cfg.Command != nil {
			opts = append(opts, job.WithWork(job.CommandWork(job.Command{
				Path: cfg.Command.Path,
				Args: cfg.Command.Args,
				Env:  cfg.Command.Environ(i),
			})))
		}
		jobs = append(jobs, job.New(uint32(i), payload(cfg.Payload, i), opts...))
	}
	return jobs, nil
}

// payload replaces every %d of template by the job id.
func payload(template string, id int) string {
	return strings.ReplaceAll(template, "%d", strconv.Itoa(id))
}

func sourcesFromConfig(cfg model.Shutdown) ([]shutdown.Source, error) {
	seen := make(map[string]struct{}, len(cfg.Signals))
	sources := make([]shutdown.Source, 0, len(cfg.Signals))
	for _, name := range cfg.Signals {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		switch name {
		case model.SignalInterrupt:
			sources = append(sources, shutdown.Interrupt())
		case model.SignalTerminate:
			sources = append(sources, shutdown.Terminate())
		default:
			return nil, fmt.Errorf("unsupported shutdown signal %q", name)
		}
	}
	return sources, nil
}
