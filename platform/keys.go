package platform

import (
	"fmt"
	"strconv"
	"strings"
)

// Key is a Windows virtual-key code. Other backends translate it to
// their own key identifiers.
type Key uint32

const (
	KeyNone  Key = 0
	KeyTab   Key = 0x09
	KeyEnter Key = 0x0D
	KeySpace Key = 0x20
	Key0     Key = 0x30
	Key9     Key = 0x39
	KeyA     Key = 0x41
	KeyZ     Key = 0x5A
	KeyF1    Key = 0x70
	KeyF12   Key = 0x7B
)

var keyNames = map[string]Key{
	"tab":   KeyTab,
	"enter": KeyEnter,
	"space": KeySpace,
}

// ParseKey returns the key for a name such as "q", "7", "f5" or "space".
func ParseKey(name string) (Key, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if k, ok := keyNames[name]; ok {
		return k, nil
	}
	if len(name) == 1 {
		c := name[0]
		switch {
		case c >= 'a' && c <= 'z':
			return KeyA + Key(c-'a'), nil
		case c >= '0' && c <= '9':
			return Key0 + Key(c-'0'), nil
		}
	}
	if rest, ok := strings.CutPrefix(name, "f"); ok {
		if n, err := strconv.Atoi(rest); err == nil && n >= 1 && n <= 12 && strconv.Itoa(n) == rest {
			return KeyF1 + Key(n-1), nil
		}
	}
	return KeyNone, fmt.Errorf("unknown key: %s", name)
}

// IsLetter reports whether k is one of A-Z.
func (k Key) IsLetter() bool { return k >= KeyA && k <= KeyZ }

// IsDigit reports whether k is one of 0-9.
func (k Key) IsDigit() bool { return k >= Key0 && k <= Key9 }

// IsFunction reports whether k is one of F1-F12.
func (k Key) IsFunction() bool { return k >= KeyF1 && k <= KeyF12 }

func (k Key) String() string {
	switch {
	case k.IsLetter():
		return string(rune('A' + (k - KeyA)))
	case k.IsDigit():
		return string(rune('0' + (k - Key0)))
	case k.IsFunction():
		return fmt.Sprintf("F%d", k-KeyF1+1)
	}
	switch k {
	case KeyTab:
		return "Tab"
	case KeyEnter:
		return "Enter"
	case KeySpace:
		return "Space"
	case KeyNone:
		return "None"
	}
	return fmt.Sprintf("VK(0x%02X)", uint32(k))
}
