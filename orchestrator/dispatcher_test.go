package orchestrator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markestedt/layoutfix/layout"
	"markestedt/layoutfix/platform"
	"markestedt/layoutfix/platform/fake"
)

// gatedHandler blocks every invocation until release is closed.
type gatedHandler struct {
	started chan Invocation
	release chan struct{}
	calls   atomic.Int32
	active  atomic.Int32
	overlap atomic.Bool
}

func newGatedHandler() *gatedHandler {
	return &gatedHandler{
		started: make(chan Invocation, 16),
		release: make(chan struct{}),
	}
}

func (h *gatedHandler) Handle(ctx context.Context, inv Invocation) Result {
	if h.active.Add(1) > 1 {
		h.overlap.Store(true)
	}
	defer h.active.Add(-1)
	h.calls.Add(1)
	h.started <- inv
	select {
	case <-h.release:
	case <-ctx.Done():
		return Result{Outcome: OutcomeFailed, Err: ctx.Err()}
	}
	return Result{Outcome: OutcomeConverted}
}

func startDispatcher(t *testing.T, h Handler, cfg DispatcherConfig) *Dispatcher {
	t.Helper()
	cfg.Logger = quietLogger()
	d := NewDispatcher(h, cfg)
	d.Start(context.Background())
	t.Cleanup(d.Stop)
	return d
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyDrop, p)

	p, err = ParsePolicy(" Coalesce ")
	require.NoError(t, err)
	assert.Equal(t, PolicyCoalesce, p)

	_, err = ParsePolicy("queue")
	assert.Error(t, err)
}

func TestDispatcherDropsWhileBusy(t *testing.T) {
	h := newGatedHandler()
	d := startDispatcher(t, h, DispatcherConfig{Policy: PolicyDrop})

	d.Trigger()
	<-h.started
	assert.True(t, d.Busy())

	d.Trigger()
	d.Trigger()
	assert.EqualValues(t, 2, d.Dropped())

	close(h.release)
	require.Eventually(t, func() bool { return d.Handled() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 1, h.calls.Load())
	assert.False(t, d.Busy())

	// Idle again: the next trigger runs.
	d.Trigger()
	require.Eventually(t, func() bool { return d.Handled() == 2 }, time.Second, 5*time.Millisecond)
	assert.False(t, h.overlap.Load())
}

func TestDispatcherCoalescesWhileBusy(t *testing.T) {
	h := newGatedHandler()
	d := startDispatcher(t, h, DispatcherConfig{Policy: PolicyCoalesce})

	d.Trigger()
	<-h.started

	d.Trigger()
	d.Trigger()
	d.Trigger()
	assert.EqualValues(t, 2, d.Dropped())

	close(h.release)
	require.Eventually(t, func() bool { return d.Handled() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 2, h.calls.Load())
	assert.False(t, h.overlap.Load())
}

func TestDispatcherSnapshotsPerInvocation(t *testing.T) {
	h := newGatedHandler()
	close(h.release)

	var mode atomic.Int32
	results := make(chan Result, 4)
	d := startDispatcher(t, h, DispatcherConfig{
		Policy: PolicyCoalesce,
		Snapshot: func() Invocation {
			return Invocation{Enabled: true, Settings: Settings{Mode: layout.Mode(mode.Load())}}
		},
		OnResult: func(r Result) { results <- r },
	})

	d.Trigger()
	inv := <-h.started
	assert.Equal(t, layout.ToggleAll, inv.Settings.Mode)
	<-results

	mode.Store(int32(layout.TargetToSourceOnly))
	d.Trigger()
	inv = <-h.started
	assert.Equal(t, layout.TargetToSourceOnly, inv.Settings.Mode)
	assert.Equal(t, OutcomeConverted, (<-results).Outcome)
}

func TestDispatcherStopCancelsInFlight(t *testing.T) {
	h := newGatedHandler()
	results := make(chan Result, 1)
	d := NewDispatcher(h, DispatcherConfig{
		Logger:   quietLogger(),
		OnResult: func(r Result) { results <- r },
	})
	d.Start(context.Background())

	d.Trigger()
	<-h.started

	stopped := make(chan struct{})
	go func() {
		d.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
	res := <-results
	assert.ErrorIs(t, res.Err, context.Canceled)

	// Stop is idempotent.
	d.Stop()
}

func TestDispatcherSetPolicy(t *testing.T) {
	d := NewDispatcher(newGatedHandler(), DispatcherConfig{Logger: quietLogger()})
	assert.Equal(t, PolicyDrop, d.Policy())
	d.SetPolicy(PolicyCoalesce)
	assert.Equal(t, PolicyCoalesce, d.Policy())
}

func TestDispatcherWithHotkey(t *testing.T) {
	p := fake.New()
	p.SetClipboard(platform.Present("Hello"))
	p.SetDocument("akuo")

	results := make(chan Result, 1)
	d := startDispatcher(t, newTestOrchestrator(p), DispatcherConfig{
		Snapshot: defaultInvocation,
		OnResult: func(r Result) { results <- r },
	})

	q, err := platform.ParseKey("q")
	require.NoError(t, err)
	require.NoError(t, p.RegisterHotkey(platform.Binding{Modifiers: platform.ModCtrl, Key: q}, d.Trigger))
	require.True(t, p.Fire())

	select {
	case res := <-results:
		assert.Equal(t, OutcomeConverted, res.Outcome)
	case <-time.After(time.Second):
		t.Fatal("no result")
	}
	assert.Equal(t, "שלום", p.Document())
	assert.Equal(t, platform.Present("Hello"), p.Clipboard())
}
