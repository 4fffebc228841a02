package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/CZERTAINLY/jobvisor/internal/model"
	"github.com/CZERTAINLY/jobvisor/internal/supervisor"
	"gopkg.in/yaml.v3"
)

func writeReport(w io.Writer, report supervisor.Report, format string) error {
	switch format {
	case model.OutputText, "":
		return writeText(w, report)
	case model.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("formatting report as JSON: %w", err)
		}
		return nil
	case model.OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("formatting report as YAML: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func writeText(w io.Writer, report supervisor.Report) error {
	if report.Trigger != nil {
		if _, err := fmt.Fprintf(w, "Shutdown requested by %s\n", report.Trigger.Source); err != nil {
			return err
		}
	}
	for _, rec := range report.Records {
		if _, err := fmt.Fprintln(w, rec.String()); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d completed, %d cancelled, %d failed\n",
		report.Count(supervisor.StatusCompleted),
		report.Count(supervisor.StatusCancelled),
		report.Count(supervisor.StatusFailed),
	)
	return err
}
