package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"markestedt/layoutfix/config"
	"markestedt/layoutfix/orchestrator"
	"markestedt/layoutfix/platform"
	"markestedt/layoutfix/storage"
	"markestedt/layoutfix/web"
)

// TrayView is the part of the tray the agent keeps up to date.
type TrayView interface {
	SetEnabled(enabled bool)
	SetStatus(hotkey, warning string)
}

// AgentOptions carries the optional collaborators of an Agent.
type AgentOptions struct {
	// ConfigPath is watched for changes when set.
	ConfigPath string
	// DB records results when history is enabled; may be nil.
	DB *storage.DB
	// Level is adjusted when log.level changes on reload.
	Level *slog.LevelVar
	// Orchestrator overrides the default orchestrator options.
	Orchestrator []orchestrator.Option
}

// Agent coordinates hotkey registration, the conversion worker and the
// outer surfaces (dashboard, tray, history).
type Agent struct {
	services platform.Services
	orch     *orchestrator.Orchestrator
	disp     *orchestrator.Dispatcher
	db       *storage.DB
	level    *slog.LevelVar
	path     string
	log      *slog.Logger

	cfg     atomic.Pointer[config.Config]
	enabled atomic.Bool

	// Serializes register/unregister so reloads never rebind concurrently.
	regMu sync.Mutex

	stateMu    sync.Mutex
	registered bool
	regErr     error

	surfaceMu sync.RWMutex
	web       *web.Server
	tray      TrayView
}

// NewAgent creates a new agent instance
func NewAgent(cfg *config.Config, services platform.Services, opts AgentOptions) *Agent {
	a := &Agent{
		services: services,
		db:       opts.DB,
		level:    opts.Level,
		path:     opts.ConfigPath,
		log:      slog.Default().With("component", "agent"),
	}
	a.cfg.Store(cfg)
	a.enabled.Store(true)

	a.orch = orchestrator.New(services, opts.Orchestrator...)
	policy, _ := orchestrator.ParsePolicy(cfg.Conversion.OverlapPolicy)
	a.disp = orchestrator.NewDispatcher(a.orch, orchestrator.DispatcherConfig{
		Policy:   policy,
		Snapshot: a.Snapshot,
		OnResult: a.record,
	})
	return a
}

// AttachWeb connects the dashboard so results and status changes are
// pushed to it.
func (a *Agent) AttachWeb(s *web.Server) {
	a.surfaceMu.Lock()
	defer a.surfaceMu.Unlock()
	a.web = s
}

// AttachTray connects the tray.
func (a *Agent) AttachTray(t TrayView) {
	a.surfaceMu.Lock()
	a.tray = t
	a.surfaceMu.Unlock()
	a.publish()
}

// Run registers the hotkey and processes invocations until ctx is done.
func (a *Agent) Run(ctx context.Context) error {
	a.disp.Start(ctx)
	defer a.disp.Stop()

	a.register(a.Config().Binding())

	if a.path != "" {
		w, err := config.Watch(a.path, a.Reload)
		if err != nil {
			a.log.Warn("Config hot reload unavailable", "path", a.path, "error", err)
		} else {
			defer w.Close()
		}
	}

	cfg := a.Config()
	a.log.Info("layoutfix started",
		"hotkey", cfg.Binding().String(),
		"mode", cfg.Mode().String(),
		"policy", a.disp.Policy())

	<-ctx.Done()

	// Stop new triggers before the worker goes away.
	a.unregister()
	return nil
}

// Snapshot returns the enabled flag and settings for one invocation.
func (a *Agent) Snapshot() orchestrator.Invocation {
	cfg := a.Config()
	return orchestrator.Invocation{
		Enabled: a.enabled.Load(),
		Settings: orchestrator.Settings{
			Mode:              cfg.Mode(),
			ReplaceCaps:       cfg.Conversion.ReplaceCaps,
			MaxCharacterLimit: cfg.Conversion.MaxCharacterLimit,
			SwitchLanguage:    cfg.Conversion.SwitchLanguageAfterConvert,
		},
	}
}

// Reload applies a new configuration. A changed binding is unregistered
// and registered again; everything else takes effect on the next
// invocation.
func (a *Agent) Reload(cfg *config.Config) {
	old := a.cfg.Swap(cfg)

	if policy, err := orchestrator.ParsePolicy(cfg.Conversion.OverlapPolicy); err == nil && policy != a.disp.Policy() {
		a.disp.SetPolicy(policy)
		a.log.Info("Overlap policy changed", "policy", policy)
	}

	if a.level != nil {
		if lvl, err := config.ParseLevel(cfg.Log.Level); err == nil {
			a.level.Set(lvl)
		}
	}

	if cfg.History.Enabled && a.db == nil {
		a.log.Warn("History was enabled; restart to open the history database")
	}
	if cfg.Web.Port != old.Web.Port || cfg.Web.Enabled != old.Web.Enabled || cfg.Tray.Enabled != old.Tray.Enabled {
		a.log.Warn("Dashboard and tray settings apply after restart")
	}

	if cfg.Binding() != old.Binding() {
		a.log.Info("Hotkey changed", "old", old.Binding().String(), "new", cfg.Binding().String())
		a.unregister()
		a.register(cfg.Binding())
		return
	}
	a.publish()
}

func (a *Agent) register(b platform.Binding) {
	a.regMu.Lock()
	err := a.services.RegisterHotkey(b, a.disp.Trigger)
	a.setRegistration(err == nil, err)
	a.regMu.Unlock()

	if err != nil {
		// No automatic retry; the user picks another combination.
		a.log.Warn("Hotkey registration failed", "hotkey", b.String(), "error", err)
	} else {
		a.log.Info("Hotkey registered", "hotkey", b.String())
	}
	a.publish()
}

func (a *Agent) unregister() {
	a.regMu.Lock()
	defer a.regMu.Unlock()

	if err := a.services.UnregisterHotkey(); err != nil {
		a.log.Warn("Failed to unregister hotkey", "error", err)
	}
	a.setRegistration(false, nil)
}

func (a *Agent) setRegistration(registered bool, err error) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	a.registered = registered
	a.regErr = err
}

// record logs, stores and broadcasts one result. Runs on the worker.
func (a *Agent) record(res orchestrator.Result) {
	attrs := []any{
		"id", res.ID,
		"outcome", res.Outcome,
		"chars", res.CapturedChars,
		"duration", res.Duration.Round(time.Millisecond),
	}
	switch res.Outcome {
	case orchestrator.OutcomeFailed:
		a.log.Warn("Conversion failed", append(attrs, "error", res.Err)...)
	case orchestrator.OutcomeDisabled:
		a.log.Debug("Hotkey ignored while disabled", "id", res.ID)
	default:
		a.log.Debug("Invocation finished", attrs...)
	}

	cfg := a.Config()
	c := storage.NewConversion(res, cfg.History.StoreText)
	if a.db != nil && cfg.History.Enabled && res.Outcome != orchestrator.OutcomeDisabled {
		if err := a.db.SaveConversion(c); err != nil {
			a.log.Error("Failed to save conversion", "error", err)
		}
	}

	a.surfaceMu.RLock()
	s := a.web
	a.surfaceMu.RUnlock()
	if s != nil {
		s.BroadcastResult(c)
	}
}

// publish pushes the current state to the tray and dashboard.
func (a *Agent) publish() {
	a.surfaceMu.RLock()
	t, s := a.tray, a.web
	a.surfaceMu.RUnlock()

	st := a.Status()
	if t != nil {
		t.SetEnabled(st.Enabled)
		warning := ""
		if st.RegistrationError != "" {
			warning = fmt.Sprintf("hotkey %s unavailable", st.Hotkey)
		}
		t.SetStatus(st.Hotkey, warning)
	}
	if s != nil {
		s.BroadcastStatus()
	}
}

// Status implements web.Controller.
func (a *Agent) Status() web.Status {
	cfg := a.Config()

	a.stateMu.Lock()
	registered, regErr := a.registered, a.regErr
	a.stateMu.Unlock()

	st := web.Status{
		Enabled:        a.enabled.Load(),
		Hotkey:         cfg.Binding().String(),
		Registered:     registered,
		SessionState:   platform.Unregistered.String(),
		Busy:           a.disp.Busy(),
		Handled:        uint64(a.disp.Handled()),
		Dropped:        uint64(a.disp.Dropped()),
		OverlapPolicy:  string(a.disp.Policy()),
		HistoryEnabled: a.db != nil && cfg.History.Enabled,
	}
	if regErr != nil {
		st.RegistrationError = regErr.Error()
	}
	if r, ok := a.services.(platform.StateReporter); ok {
		st.SessionState = r.SessionState().String()
		if b := r.SessionBinding(); b.Key != platform.KeyNone {
			st.SessionBinding = b.String()
		}
	} else if registered {
		st.SessionState = platform.Registered.String()
	}
	return st
}

// SetEnabled implements web.Controller. The flag is read at the start
// of each invocation; one already running finishes.
func (a *Agent) SetEnabled(enabled bool) {
	if a.enabled.Swap(enabled) == enabled {
		return
	}
	a.log.Info("Conversion toggled", "enabled", enabled)
	a.publish()
}

// Config implements web.Controller.
func (a *Agent) Config() *config.Config {
	return a.cfg.Load()
}

// Shutdown releases the backend and history database. Call after Run
// has returned.
func (a *Agent) Shutdown() error {
	var errs []error
	if err := a.services.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close platform: %w", err))
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close history: %w", err))
		}
	}
	return errors.Join(errs...)
}
