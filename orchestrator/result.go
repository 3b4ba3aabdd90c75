package orchestrator

import (
	"time"

	"markestedt/layoutfix/layout"
)

// Outcome is how an invocation ended.
type Outcome string

const (
	OutcomeDisabled  Outcome = "disabled"
	OutcomeNoText    Outcome = "no_text"
	OutcomeOverLimit Outcome = "over_limit"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeConverted Outcome = "converted"
	OutcomeFailed    Outcome = "failed"
)

// Result describes one completed invocation.
type Result struct {
	ID        string
	Outcome   Outcome
	Mode      layout.Mode
	StartedAt time.Time
	Duration  time.Duration

	CapturedChars    int
	ConvertedChars   int
	UsedSelectAll    bool
	Pasted           bool
	LanguageSwitched bool

	Captured  string
	Converted string
	Err       error
}

// ErrorMessage returns Err as a string, or "" when the invocation did
// not fail.
func (r Result) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
