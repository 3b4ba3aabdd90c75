// Package layout converts text typed in the wrong keyboard layout
// between English QWERTY and Hebrew.
package layout

import (
	"sort"
	"strings"
)

// Map holds the forward (source to target) and backward (target to
// source) character mappings. It is immutable after construction and
// safe for concurrent use.
type Map struct {
	forward  map[rune]rune
	backward map[rune]rune
	// sources lists every source rune per target, in table order.
	sources map[rune][]rune
}

// EnglishHebrew returns the English/Hebrew map.
func EnglishHebrew() *Map {
	return newMap(englishHebrew)
}

func newMap(table []pair) *Map {
	m := &Map{
		forward:  make(map[rune]rune, len(table)),
		backward: make(map[rune]rune, len(table)),
		sources:  make(map[rune][]rune, len(table)),
	}
	for _, p := range table {
		if _, dup := m.forward[p.source]; dup {
			continue
		}
		m.forward[p.source] = p.target
		m.sources[p.target] = append(m.sources[p.target], p.source)
		if _, ok := m.backward[p.target]; !ok {
			m.backward[p.target] = p.source
		}
	}
	return m
}

// Forward returns the target-layout character for r.
func (m *Map) Forward(r rune) (rune, bool) {
	t, ok := m.forward[r]
	return t, ok
}

// Backward returns the source-layout character for r.
func (m *Map) Backward(r rune) (rune, bool) {
	s, ok := m.backward[r]
	return s, ok
}

// Convert maps each character of text independently according to mode.
// With replaceCaps false, ASCII capitals A-Z are always left unchanged.
func (m *Map) Convert(text string, mode Mode, replaceCaps bool) string {
	if text == "" {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		b.WriteRune(m.convertRune(r, mode, replaceCaps))
	}
	return b.String()
}

func (m *Map) convertRune(r rune, mode Mode, replaceCaps bool) rune {
	if !replaceCaps && r >= 'A' && r <= 'Z' {
		return r
	}
	switch mode {
	case ToggleAll:
		if t, ok := m.forward[r]; ok {
			return t
		}
		if s, ok := m.backward[r]; ok {
			return s
		}
	case SourceToTargetOnly:
		if t, ok := m.forward[r]; ok {
			return t
		}
	case TargetToSourceOnly:
		if s, ok := m.backward[r]; ok {
			return s
		}
	}
	return r
}

// Collision is a target character reachable from more than one source
// character. Only Chosen survives a round trip.
type Collision struct {
	Target  rune
	Chosen  rune
	Sources []rune
}

// Collisions lists the targets whose backward mapping is lossy, sorted
// by target rune.
func (m *Map) Collisions() []Collision {
	var out []Collision
	for target, srcs := range m.sources {
		if len(srcs) < 2 {
			continue
		}
		out = append(out, Collision{
			Target:  target,
			Chosen:  m.backward[target],
			Sources: append([]rune(nil), srcs...),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Target < out[j].Target })
	return out
}

// ContainsTarget reports whether text has any Hebrew-block character
// (U+0590 to U+05FF).
func ContainsTarget(text string) bool {
	for _, r := range text {
		if r >= 0x0590 && r <= 0x05FF {
			return true
		}
	}
	return false
}

// ContainsSource reports whether text has any ASCII letter.
func ContainsSource(text string) bool {
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}

// IsMixed reports whether text has both Hebrew and English letters.
func IsMixed(text string) bool {
	return ContainsTarget(text) && ContainsSource(text)
}
