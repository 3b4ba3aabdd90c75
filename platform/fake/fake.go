// Package fake provides an in-memory platform backend that behaves like
// a single focused text field. It is used by tests of the pipeline and
// the shell.
package fake

import (
	"context"
	"strings"
	"sync"
	"time"

	"markestedt/layoutfix/platform"
)

// Op names recorded in the call log.
const (
	OpRegister       = "register"
	OpUnregister     = "unregister"
	OpWaitModifiers  = "wait_modifiers"
	OpCopy           = "copy"
	OpPaste          = "paste"
	OpSelectAll      = "select_all"
	OpLanguageSwitch = "language_switch"
	OpGetClipboard   = "get_clipboard"
	OpSetClipboard   = "set_clipboard"
	OpClearClipboard = "clear_clipboard"
)

// Services is a scripted platform.Services.
type Services struct {
	mu sync.Mutex

	clipboard platform.Text
	document  string
	selection string
	selStart  int
	selected  bool

	binding    platform.Binding
	callback   func()
	registered bool

	// Errors returned by the matching operation, keyed by Op name.
	errs   map[string]error
	panics map[string]any

	calls        []string
	pastes       []string
	langSwitches int
	closed       bool
	tracker      platform.SessionTracker
}

// New returns a backend with an empty document and absent clipboard.
func New() *Services {
	return &Services{
		errs:   make(map[string]error),
		panics: make(map[string]any),
	}
}

// SetDocument replaces the focused field's content and clears the selection.
func (s *Services) SetDocument(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.document = text
	s.selected = false
	s.selection = ""
}

// Select marks text as the current selection, appending it to the
// document when it is not already part of it.
func (s *Services) Select(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := strings.Index(s.document, text)
	if idx < 0 || text == "" {
		idx = len(s.document)
		s.document += text
	}
	s.selStart = idx
	s.selection = text
	s.selected = text != ""
}

// Document returns the focused field's content.
func (s *Services) Document() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.document
}

// SetClipboard seeds the clipboard.
func (s *Services) SetClipboard(t platform.Text) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clipboard = t
}

// Clipboard returns the clipboard content without recording a call.
func (s *Services) Clipboard() platform.Text {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clipboard
}

// FailOn makes op return err until cleared with a nil err.
func (s *Services) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.errs, op)
		return
	}
	s.errs[op] = err
}

// PanicOn makes op panic with v.
func (s *Services) PanicOn(op string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panics[op] = v
}

// Calls returns the recorded operation log.
func (s *Services) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Pastes returns the text of every paste that landed in the document.
func (s *Services) Pastes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.pastes...)
}

// LanguageSwitches returns how many language-switch chords were sent.
func (s *Services) LanguageSwitches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.langSwitches
}

// Registered returns the active binding, if any.
func (s *Services) Registered() (platform.Binding, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.binding, s.registered
}

// Fire simulates the OS delivering the registered hotkey. It reports
// false when nothing is registered.
func (s *Services) Fire() bool {
	s.mu.Lock()
	cb := s.callback
	ok := s.registered
	s.mu.Unlock()
	if !ok || cb == nil {
		return false
	}
	cb()
	return true
}

// Closed reports whether Close was called.
func (s *Services) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// enter records op and returns its scripted error. Must hold s.mu.
func (s *Services) enter(op string) error {
	s.calls = append(s.calls, op)
	if v, ok := s.panics[op]; ok {
		delete(s.panics, op)
		s.mu.Unlock()
		defer s.mu.Lock()
		panic(v)
	}
	return s.errs[op]
}

func (s *Services) RegisterHotkey(binding platform.Binding, onTriggered func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpRegister); err != nil {
		return &platform.RegistrationError{Binding: binding, Err: err}
	}
	if err := binding.Validate(); err != nil {
		return &platform.RegistrationError{Binding: binding, Err: err}
	}
	// Like the native backends, an active session is torn down first.
	s.unregisterLocked()
	s.tracker.Set(platform.Registering, binding)
	s.tracker.Set(platform.Registered, binding)
	s.binding = binding
	s.callback = onTriggered
	s.registered = true
	return nil
}

func (s *Services) UnregisterHotkey() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unregisterLocked()
	return nil
}

func (s *Services) unregisterLocked() {
	if !s.registered {
		return
	}
	s.calls = append(s.calls, OpUnregister)
	s.tracker.Set(platform.Unregistering, s.binding)
	s.tracker.Set(platform.Unregistered, s.binding)
	s.registered = false
	s.callback = nil
	s.binding = platform.Binding{}
}

// SessionState implements platform.StateReporter.
func (s *Services) SessionState() platform.SessionState {
	return s.tracker.SessionState()
}

// SessionBinding implements platform.StateReporter.
func (s *Services) SessionBinding() platform.Binding {
	return s.tracker.Binding()
}

func (s *Services) WaitForModifiersReleased(ctx context.Context, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enter(OpWaitModifiers)
}

func (s *Services) SimulateCopy(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpCopy); err != nil {
		return &platform.SimulationError{Action: OpCopy, Err: err}
	}
	// Copying with nothing selected leaves the clipboard untouched, like
	// most editors.
	if s.selected {
		s.clipboard = platform.Present(s.selection)
	}
	return nil
}

func (s *Services) SimulateSelectAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpSelectAll); err != nil {
		return &platform.SimulationError{Action: OpSelectAll, Err: err}
	}
	s.selStart = 0
	s.selection = s.document
	s.selected = s.document != ""
	return nil
}

func (s *Services) SimulatePaste(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpPaste); err != nil {
		return &platform.SimulationError{Action: OpPaste, Err: err}
	}
	if !s.clipboard.Valid {
		return nil
	}
	text := s.clipboard.Value
	if s.selected {
		end := s.selStart + len(s.selection)
		s.document = s.document[:s.selStart] + text + s.document[end:]
	} else {
		s.document += text
	}
	s.selected = false
	s.selection = ""
	s.pastes = append(s.pastes, text)
	return nil
}

func (s *Services) SimulateLanguageSwitch(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpLanguageSwitch); err != nil {
		return &platform.SimulationError{Action: OpLanguageSwitch, Err: err}
	}
	s.langSwitches++
	return nil
}

func (s *Services) ClipboardText() (platform.Text, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpGetClipboard); err != nil {
		return platform.Absent(), err
	}
	return s.clipboard, nil
}

func (s *Services) SetClipboardText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpSetClipboard); err != nil {
		return err
	}
	s.clipboard = platform.Present(text)
	return nil
}

func (s *Services) ClearClipboard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpClearClipboard); err != nil {
		return err
	}
	s.clipboard = platform.Absent()
	return nil
}

func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.registered = false
	s.callback = nil
	return nil
}
