package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
)

// Policy decides what a trigger does while an invocation is in flight.
type Policy string

const (
	// PolicyDrop ignores triggers while busy.
	PolicyDrop Policy = "drop"
	// PolicyCoalesce keeps at most one pending retrigger.
	PolicyCoalesce Policy = "coalesce"
)

// ParsePolicy parses an overlap policy name. Empty means PolicyDrop.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyDrop, "":
		return PolicyDrop, nil
	case PolicyCoalesce:
		return PolicyCoalesce, nil
	}
	return PolicyDrop, fmt.Errorf("unknown overlap policy: %s", s)
}

// Handler runs one invocation.
type Handler interface {
	Handle(ctx context.Context, inv Invocation) Result
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	Policy Policy
	// Snapshot returns the enabled flag and settings at the moment an
	// invocation starts.
	Snapshot func() Invocation
	// OnResult is called on the worker goroutine after every invocation.
	OnResult func(Result)
	Logger   *slog.Logger
}

// Dispatcher turns hotkey triggers into invocations on a single worker
// goroutine. Trigger never blocks, so it is safe to use directly as the
// hotkey callback.
type Dispatcher struct {
	handler  Handler
	snapshot func() Invocation
	onResult func(Result)
	log      *slog.Logger

	policy  atomic.Value // Policy
	busy    atomic.Bool
	pending chan struct{}

	handled atomic.Int64
	dropped atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDispatcher creates a stopped dispatcher.
func NewDispatcher(h Handler, cfg DispatcherConfig) *Dispatcher {
	d := &Dispatcher{
		handler:  h,
		snapshot: cfg.Snapshot,
		onResult: cfg.OnResult,
		log:      cfg.Logger,
		pending:  make(chan struct{}, 1),
	}
	if d.log == nil {
		d.log = slog.Default()
	}
	if d.snapshot == nil {
		d.snapshot = func() Invocation { return Invocation{} }
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyDrop
	}
	d.policy.Store(cfg.Policy)
	return d
}

// Start launches the worker. It is a no-op if already started.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	go d.loop(ctx, d.done)
}

// Stop cancels the in-flight invocation, if any, and waits for the
// worker to exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel, d.done = nil, nil
	d.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// SetPolicy changes the overlap policy for subsequent triggers.
func (d *Dispatcher) SetPolicy(p Policy) {
	d.policy.Store(p)
}

func (d *Dispatcher) Policy() Policy {
	return d.policy.Load().(Policy)
}

// Trigger requests an invocation.
func (d *Dispatcher) Trigger() {
	if d.Policy() == PolicyDrop {
		if !d.busy.CompareAndSwap(false, true) {
			d.dropped.Add(1)
			d.log.Debug("Conversion in progress, trigger dropped")
			return
		}
	}
	select {
	case d.pending <- struct{}{}:
	default:
		d.dropped.Add(1)
		d.log.Debug("Retrigger already pending, trigger coalesced")
	}
}

// Busy reports whether an invocation is queued or running.
func (d *Dispatcher) Busy() bool {
	return d.busy.Load() || len(d.pending) > 0
}

// Handled returns how many invocations ran to completion.
func (d *Dispatcher) Handled() int64 { return d.handled.Load() }

// Dropped returns how many triggers were dropped or coalesced.
func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }

func (d *Dispatcher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.pending:
			d.busy.Store(true)
			d.run(ctx)
			d.busy.Store(false)
		}
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Dispatcher worker recovered from panic", "panic", r)
		}
	}()

	res := d.handler.Handle(ctx, d.snapshot())
	if d.onResult != nil {
		d.onResult(res)
	}
	d.handled.Add(1)
}
