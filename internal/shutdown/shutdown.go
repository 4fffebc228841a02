package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

// Source is anything able to request a shutdown. Subscribe returns a stream which
// yields (or is closed) when the shutdown is requested. The subscription ends
// when ctx is done.
type Source interface {
	Name() string
	Subscribe(ctx context.Context) (<-chan struct{}, error)
}

// Subscription is an active stream of a named source.
type Subscription struct {
	Name string
	C    <-chan struct{}
}

// Event is the first shutdown request observed by First.
type Event struct {
	Source string    `json:"source" yaml:"source"`
	At     time.Time `json:"at" yaml:"at"`
}

var ErrNilSignal = errors.New("signal is nil")

// SignalSource delivers a shutdown on the given OS signal.
type SignalSource struct {
	name string
	sig  os.Signal
}

func Signal(name string, sig os.Signal) SignalSource {
	return SignalSource{name: name, sig: sig}
}

func Interrupt() SignalSource { return Signal("interrupt", os.Interrupt) }
func Terminate() SignalSource { return Signal("terminate", syscall.SIGTERM) }

func (s SignalSource) Name() string { return s.name }

func (s SignalSource) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	if s.sig == nil {
		return nil, fmt.Errorf("subscribing %s: %w", s.name, ErrNilSignal)
	}
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, s.sig)

	out := make(chan struct{}, 1)
	go func() {
		defer signal.Stop(sigs)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigs:
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}

// Trigger is a manually fired Source. Fire is idempotent and safe to call
// before Subscribe.
type Trigger struct {
	name    string
	once    sync.Once
	fired   chan struct{}
	failErr error
}

func NewTrigger(name string) *Trigger {
	return &Trigger{name: name, fired: make(chan struct{})}
}

// Fail makes every following Subscribe return err.
func (t *Trigger) Fail(err error) *Trigger {
	t.failErr = err
	return t
}

func (t *Trigger) Name() string { return t.name }

func (t *Trigger) Fire() {
	t.once.Do(func() { close(t.fired) })
}

func (t *Trigger) Subscribe(_ context.Context) (<-chan struct{}, error) {
	if t.failErr != nil {
		return nil, fmt.Errorf("subscribing %s: %w", t.name, t.failErr)
	}
	return t.fired, nil
}

// First races the subscriptions and delivers at most one Event, the first to
// fire. The returned channel is closed once all streams are ended, ctx is done
// or the event was delivered. A stream closed by its sender counts as fired.
func First(ctx context.Context, subs ...Subscription) <-chan Event {
	out := make(chan Event, 1)
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)

	var once sync.Once
	for _, sub := range subs {
		if sub.C == nil {
			continue
		}
		g.Go(func() error {
			select {
			case <-gctx.Done():
			case <-sub.C:
				once.Do(func() {
					out <- Event{Source: sub.Name, At: time.Now()}
					cancel()
				})
			}
			return nil
		})
	}

	go func() {
		_ = g.Wait() // goroutines do not return an error
		cancel()
		close(out)
	}()
	return out
}
