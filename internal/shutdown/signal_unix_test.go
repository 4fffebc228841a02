//go:build unix

package shutdown_test

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/CZERTAINLY/jobvisor/internal/shutdown"
	"github.com/stretchr/testify/require"
)

func TestSignal(t *testing.T) {
	require.Equal(t, "interrupt", shutdown.Interrupt().Name())
	require.Equal(t, "terminate", shutdown.Terminate().Name())

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	src := shutdown.Signal("usr1", syscall.SIGUSR1)
	ch, err := src.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR1))
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("signal not delivered")
	}
}

func TestSignalRepeated(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	ch, err := shutdown.Terminate().Subscribe(ctx)
	require.NoError(t, err)
	events := shutdown.First(ctx, shutdown.Subscription{Name: "terminate", C: ch})

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))
	select {
	case ev := <-events:
		require.Equal(t, "terminate", ev.Source)
	case <-time.After(5 * time.Second):
		t.Fatal("signal not delivered")
	}

	// the subscription outlives the first event; without it a second
	// SIGTERM would terminate the test binary
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("second signal not delivered")
	}
	_, ok := <-events
	require.False(t, ok)
}
