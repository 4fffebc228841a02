package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/CZERTAINLY/jobvisor/internal/model"
	"github.com/CZERTAINLY/jobvisor/internal/shutdown"
	"github.com/CZERTAINLY/jobvisor/internal/supervisor"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestJobsFromConfig(t *testing.T) {
	jobs, err := jobsFromConfig(model.Jobs{Count: 3, Latency: "2s", Payload: "job %d"})
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	for i, j := range jobs {
		require.Equal(t, uint32(i), j.ID())
	}
	require.Equal(t, "job 2", jobs[2].Payload())

	jobs, err = jobsFromConfig(model.Jobs{Count: 1, Latency: "1s", Payload: "static"})
	require.NoError(t, err)
	require.Equal(t, "static", jobs[0].Payload())

	_, err = jobsFromConfig(model.Jobs{Count: 1, Latency: "later"})
	require.Error(t, err)
	_, err = jobsFromConfig(model.Jobs{Count: -1, Latency: "1s"})
	require.Error(t, err)
}

func TestPayload(t *testing.T) {
	var testCases = []struct {
		scenario string
		given    string
		then     string
	}{
		{"default", "job %d", "job 7"},
		{"static", "static", "static"},
		{"other verb", "job %s", "job %s"},
		{"twice", "%d-%d", "7-7"},
		{"literal percent", "100% job %d", "100% job 7"},
	}
	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			require.Equal(t, tt.then, payload(tt.given, 7))
		})
	}
}

func TestSourcesFromConfig(t *testing.T) {
	sources, err := sourcesFromConfig(model.DefaultConfig().Shutdown)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	require.Equal(t, "interrupt", sources[0].Name())
	require.Equal(t, "terminate", sources[1].Name())

	sources, err = sourcesFromConfig(model.Shutdown{Signals: []string{"terminate", "terminate"}})
	require.NoError(t, err)
	require.Len(t, sources, 1)

	_, err = sourcesFromConfig(model.Shutdown{Signals: []string{"hangup"}})
	require.Error(t, err)
}

func testReport() supervisor.Report {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return supervisor.Report{
		RunID:   "run",
		Started: at,
		Stopped: at.Add(time.Second),
		Trigger: &shutdown.Event{Source: "interrupt", At: at.Add(time.Second)},
		States:  []supervisor.State{supervisor.StateIdle, supervisor.StateDone},
		Records: []supervisor.Record{
			{ID: 0, Status: supervisor.StatusCompleted, Result: "Job 0 ran for 5000ms"},
			{ID: 1, Status: supervisor.StatusCancelled, CancelRequested: true},
			{ID: 2, Status: supervisor.StatusFailed, Cause: "panic: boom"},
		},
	}
}

func TestWriteReport(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeReport(&buf, testReport(), model.OutputText))
		require.Equal(t, `Shutdown requested by interrupt
Job 0 completed: Job 0 ran for 5000ms
Job 1 was cancelled
Job 2 failed: panic: boom
1 completed, 1 cancelled, 1 failed
`, buf.String())
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeReport(&buf, testReport(), model.OutputJSON))
		var got map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		require.Equal(t, "run", got["run_id"])
		require.Equal(t, []any{"idle", "done"}, got["states"])
		records, ok := got["records"].([]any)
		require.True(t, ok)
		require.Len(t, records, 3)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeReport(&buf, testReport(), model.OutputYAML))
		var got struct {
			RunID   string   `yaml:"run_id"`
			States  []string `yaml:"states"`
			Records []struct {
				ID     uint32 `yaml:"id"`
				Status string `yaml:"status"`
			} `yaml:"records"`
		}
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		require.Equal(t, "run", got.RunID)
		require.Equal(t, []string{"idle", "done"}, got.States)
		require.Equal(t, "cancelled", got.Records[1].Status)
	})

	t.Run("unsupported", func(t *testing.T) {
		err := writeReport(&bytes.Buffer{}, testReport(), "xml")
		require.EqualError(t, err, `unsupported output format "xml"`)
	})
}
