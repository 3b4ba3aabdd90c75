// Package orchestrator runs the hotkey-triggered convert workflow:
// capture the selection through the clipboard, remap it, paste it back
// and leave the clipboard as the user had it.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"markestedt/layoutfix/layout"
	"markestedt/layoutfix/platform"
)

// Pipeline delays, in addition to the settle delays the backend applies
// after each synthesized chord.
const (
	ModifierReleaseTimeout = time.Second
	ClearSettle            = 50 * time.Millisecond
	PasteDelay             = 50 * time.Millisecond
	LanguageSwitchDelay    = 50 * time.Millisecond
	DrainDelay             = 200 * time.Millisecond
)

// Platform is the subset of platform.Services an invocation uses.
type Platform interface {
	platform.Input
	platform.Clipboard
}

// Settings are read by the caller at the start of every invocation.
type Settings struct {
	Mode              layout.Mode
	ReplaceCaps       bool
	MaxCharacterLimit int // 0 means unlimited
	SwitchLanguage    bool
}

// Invocation is the snapshot one trigger runs against.
type Invocation struct {
	Enabled  bool
	Settings Settings
}

// SleepFunc suspends for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Orchestrator executes invocations against a platform backend. It
// holds no per-invocation state and is safe to reuse, but invocations
// must not overlap; Dispatcher enforces that.
type Orchestrator struct {
	platform Platform
	layout   *layout.Map
	sleep    SleepFunc
	log      *slog.Logger
}

type Option func(*Orchestrator)

// WithSleep replaces the pipeline's suspension function. Tests pass a
// no-op.
func WithSleep(fn SleepFunc) Option {
	return func(o *Orchestrator) { o.sleep = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithLayout overrides the default English/Hebrew map.
func WithLayout(m *layout.Map) Option {
	return func(o *Orchestrator) { o.layout = m }
}

// New creates an orchestrator for p.
func New(p Platform, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		platform: p,
		layout:   layout.EnglishHebrew(),
		sleep:    platform.Sleep,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Handle runs one invocation to completion. It never panics and never
// returns before the clipboard has been restored.
func (o *Orchestrator) Handle(ctx context.Context, inv Invocation) (res Result) {
	res = Result{
		ID:        uuid.NewString(),
		Mode:      inv.Settings.Mode,
		StartedAt: time.Now(),
	}
	defer func() { res.Duration = time.Since(res.StartedAt) }()

	if !inv.Enabled {
		res.Outcome = OutcomeDisabled
		return res
	}

	var (
		original platform.Text
		snapped  bool
	)
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("Conversion panicked",
				"id", res.ID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			res.Outcome = OutcomeFailed
			res.Err = fmt.Errorf("panic: %v", r)
		}
		if snapped {
			o.Restore(original)
		}
	}()

	if err := o.platform.WaitForModifiersReleased(ctx, ModifierReleaseTimeout); err != nil {
		if ctx.Err() != nil {
			res.Outcome = OutcomeFailed
			res.Err = ctx.Err()
			return res
		}
		o.log.Debug("Modifier wait failed, continuing", "error", err)
	}

	original, snapped = o.snapshot(), true

	if err := o.run(ctx, inv.Settings, &res); err != nil {
		o.log.Error("Conversion failed", "id", res.ID, "error", err)
		res.Outcome = OutcomeFailed
		res.Err = err
	}
	return res
}

// snapshot reads the clipboard before anything touches it. Read errors
// count as an absent clipboard.
func (o *Orchestrator) snapshot() platform.Text {
	text, err := o.platform.ClipboardText()
	if err != nil {
		o.log.Debug("Failed to read clipboard, treating as absent", "error", err)
		return platform.Absent()
	}
	return text
}

func (o *Orchestrator) run(ctx context.Context, s Settings, res *Result) error {
	if err := o.platform.ClearClipboard(); err != nil {
		o.log.Debug("Failed to clear clipboard before copy", "error", err)
	}
	if err := o.sleep(ctx, ClearSettle); err != nil {
		return err
	}

	captured, err := o.capture(ctx, res)
	if err != nil {
		return err
	}
	if captured.Empty() {
		res.Outcome = OutcomeNoText
		return nil
	}

	res.Captured = captured.Value
	res.CapturedChars = utf8.RuneCountInString(captured.Value)
	if s.MaxCharacterLimit > 0 && res.CapturedChars > s.MaxCharacterLimit {
		o.log.Info("Selection over character limit, skipping",
			"chars", res.CapturedChars, "limit", s.MaxCharacterLimit)
		res.Outcome = OutcomeOverLimit
		return nil
	}

	converted := o.layout.Convert(captured.Value, s.Mode, s.ReplaceCaps)
	if converted == captured.Value {
		res.Outcome = OutcomeUnchanged
		return nil
	}
	res.Converted = converted
	res.ConvertedChars = utf8.RuneCountInString(converted)

	if err := o.platform.SetClipboardText(converted); err != nil {
		return fmt.Errorf("failed to set converted text: %w", err)
	}
	if err := o.sleep(ctx, PasteDelay); err != nil {
		return err
	}
	pasted, err := o.simulate(ctx, "paste", o.platform.SimulatePaste)
	if err != nil {
		return err
	}
	res.Pasted = pasted

	if s.SwitchLanguage {
		if err := o.sleep(ctx, LanguageSwitchDelay); err != nil {
			return err
		}
		switched, err := o.simulate(ctx, "language_switch", o.platform.SimulateLanguageSwitch)
		if err != nil {
			return err
		}
		res.LanguageSwitched = switched
	}

	if err := o.sleep(ctx, DrainDelay); err != nil {
		return err
	}

	o.log.Info("Converted",
		"id", res.ID,
		"mode", s.Mode.String(),
		"chars", res.CapturedChars,
		"select_all", res.UsedSelectAll,
	)
	res.Outcome = OutcomeConverted
	return nil
}

// capture copies the selection, falling back to select-all when nothing
// was selected.
func (o *Orchestrator) capture(ctx context.Context, res *Result) (platform.Text, error) {
	if _, err := o.simulate(ctx, "copy", o.platform.SimulateCopy); err != nil {
		return platform.Absent(), err
	}
	if text := o.read(); !text.Empty() {
		return text, nil
	}

	res.UsedSelectAll = true
	if _, err := o.simulate(ctx, "select_all", o.platform.SimulateSelectAll); err != nil {
		return platform.Absent(), err
	}
	if _, err := o.simulate(ctx, "copy", o.platform.SimulateCopy); err != nil {
		return platform.Absent(), err
	}
	return o.read(), nil
}

func (o *Orchestrator) read() platform.Text {
	text, err := o.platform.ClipboardText()
	if err != nil {
		o.log.Debug("Failed to read clipboard", "error", err)
		return platform.Absent()
	}
	return text
}

// simulate runs a chord and reports whether it was queued. A failed
// chord is logged and the pipeline carries on; only cancellation stops
// it.
func (o *Orchestrator) simulate(ctx context.Context, action string, fn func(context.Context) error) (bool, error) {
	err := fn(ctx)
	if err == nil {
		return true, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	var simErr *platform.SimulationError
	if !errors.As(err, &simErr) {
		err = &platform.SimulationError{Action: action, Err: err}
	}
	o.log.Warn("Input simulation failed", "action", action, "error", err)
	return false, nil
}
