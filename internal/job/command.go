package job

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
)

var ErrEmptyCommand = errors.New("command path is empty")

// Command describes an external process used as the work of a job.
type Command struct {
	Path string
	Args []string
	Env  []string
}

// CommandWork returns a WorkFunc running cmd. The trimmed stdout is the job
// result; stderr lines are logged. Cancelling ctx kills the process and the
// job returns ctx.Err().
func CommandWork(cmd Command) WorkFunc {
	return func(ctx context.Context) (string, error) {
		if cmd.Path == "" {
			return "", ErrEmptyCommand
		}
		c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
		detach(c)
		if len(cmd.Env) > 0 {
			c.Env = append([]string(nil), cmd.Env...)
		}
		var stdout bytes.Buffer
		c.Stdout = &stdout
		stderr, err := c.StderrPipe()
		if err != nil {
			return "", err
		}

		if err := c.Start(); err != nil {
			return "", fmt.Errorf("starting %s: %w", cmd.Path, err)
		}

		var wg sync.WaitGroup
		wg.Go(func() {
			processStderr(ctx, stderr)
		})
		// stderr must be drained before Wait closes the pipe
		wg.Wait()
		err = c.Wait()

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if err != nil {
			return "", fmt.Errorf("running %s: %w", cmd.Path, err)
		}
		return strings.TrimSpace(stdout.String()), nil
	}
}

func processStderr(ctx context.Context, stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		slog.WarnContext(ctx, "job stderr", "line", scanner.Text())
	}
	err := scanner.Err()
	if err != nil && !errors.Is(err, io.EOF) {
		slog.ErrorContext(ctx, "processing stderr", "error", err)
	}
}
