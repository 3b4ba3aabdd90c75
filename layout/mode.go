package layout

import (
	"fmt"
	"strings"
)

// Mode selects which direction Convert maps characters in.
type Mode int

const (
	// ToggleAll maps source characters to the target layout and target
	// characters back to the source layout.
	ToggleAll Mode = iota
	// SourceToTargetOnly maps English to Hebrew and leaves Hebrew alone.
	SourceToTargetOnly
	// TargetToSourceOnly maps Hebrew to English and leaves English alone.
	TargetToSourceOnly
)

func (m Mode) String() string {
	switch m {
	case ToggleAll:
		return "toggle_all"
	case SourceToTargetOnly:
		return "source_to_target"
	case TargetToSourceOnly:
		return "target_to_source"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode accepts the names produced by String plus the
// english_to_hebrew / hebrew_to_english aliases.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "toggle_all", "toggle", "":
		return ToggleAll, nil
	case "source_to_target", "english_to_hebrew":
		return SourceToTargetOnly, nil
	case "target_to_source", "hebrew_to_english":
		return TargetToSourceOnly, nil
	}
	return ToggleAll, fmt.Errorf("unknown conversion mode: %s", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
