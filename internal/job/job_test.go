package job_test

import (
	"context"
	"errors"
	"testing"
	"testing/synctest"
	"time"

	"github.com/CZERTAINLY/jobvisor/internal/job"
	"github.com/stretchr/testify/require"
)

func TestExecute(t *testing.T) {
	t.Parallel()

	type given struct {
		latency time.Duration
		cancel  time.Duration // 0 means never
	}
	type then struct {
		result  string
		err     error
		elapsed time.Duration
	}

	var testCases = []struct {
		scenario string
		given    given
		then     then
	}{
		{"default latency", given{job.DefaultLatency, 0}, then{"Job 7 ran for 5000ms", nil, 5 * time.Second}},
		{"short latency", given{250 * time.Millisecond, 0}, then{"Job 7 ran for 250ms", nil, 250 * time.Millisecond}},
		{"cancel interrupts sleep", given{job.DefaultLatency, time.Second}, then{"", context.Canceled, time.Second}},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			t.Parallel()
			synctest.Test(t, func(t *testing.T) {
				ctx, cancel := context.WithCancel(t.Context())
				defer cancel()
				if tt.given.cancel > 0 {
					time.AfterFunc(tt.given.cancel, cancel)
				}

				j := job.New(7, "job 7", job.WithLatency(tt.given.latency))
				start := time.Now()
				result, err := j.Execute(ctx)
				require.Equal(t, tt.then.elapsed, time.Since(start))
				require.Equal(t, tt.then.result, result)
				if tt.then.err != nil {
					require.ErrorIs(t, err, tt.then.err)
				} else {
					require.NoError(t, err)
				}
			})
		})
	}
}

func TestWithWork(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	j := job.New(1, "custom", job.WithWork(func(context.Context) (string, error) {
		return "partial", boom
	}))
	result, err := j.Execute(t.Context())
	require.ErrorIs(t, err, boom)
	require.Equal(t, "partial", result)
}

func TestNew(t *testing.T) {
	t.Parallel()
	j := job.New(3, "job 3")
	require.Equal(t, uint32(3), j.ID())
	require.Equal(t, "job 3", j.Payload())
	require.Equal(t, "Job { id: 3, payload: job 3 }", j.String())
}
