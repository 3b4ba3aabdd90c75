package layout

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	m := EnglishHebrew()

	tests := []struct {
		name        string
		text        string
		mode        Mode
		replaceCaps bool
		want        string
	}{
		{"empty", "", ToggleAll, true, ""},
		{"english to hebrew", "abc", ToggleAll, true, "שנב"},
		{"hebrew to english", "שנב", ToggleAll, true, "abc"},
		{"wrong layout greeting", "akuo", ToggleAll, true, "שלום"},
		{"digits untouched", "123", ToggleAll, true, "123"},
		{"spaces kept", "a b", ToggleAll, true, "ש נ"},
		{"caps converted", "ABC", ToggleAll, true, "שנב"},
		{"caps preserved", "ABc", ToggleAll, false, "ABב"},
		{"source only skips hebrew", "aש", SourceToTargetOnly, true, "שש"},
		{"target only skips english", "aש", TargetToSourceOnly, true, "aa"},
		{"punctuation", ",;[]", ToggleAll, true, "תף]["},
		{"question mark key", "q", ToggleAll, true, "/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Convert(tt.text, tt.mode, tt.replaceCaps))
		})
	}
}

func TestConvertNoMappableCharacters(t *testing.T) {
	m := EnglishHebrew()
	for _, text := range []string{"123", "!@#$%^&*()", "   ", "\t\n", "日本語", "€£¥", "4567890"} {
		for _, mode := range []Mode{ToggleAll, SourceToTargetOnly, TargetToSourceOnly} {
			assert.Equal(t, text, m.Convert(text, mode, true), "%q in %s", text, mode)
		}
	}
}

func TestConvertRoundTrip(t *testing.T) {
	m := EnglishHebrew()

	// Every lowercase letter except q and w, whose targets are themselves
	// forward-mapped punctuation.
	text := "ertyuiopasdfghjklzxcvbnm,;[]-="
	once := m.Convert(text, ToggleAll, true)
	assert.NotEqual(t, text, once)
	assert.Equal(t, text, m.Convert(once, ToggleAll, true))
	assert.Equal(t, utf8.RuneCountInString(text), utf8.RuneCountInString(once))
}

func TestConvertRoundTripOutsideCollisions(t *testing.T) {
	m := EnglishHebrew()

	lossy := map[rune]bool{}
	for _, c := range m.Collisions() {
		for _, src := range c.Sources {
			if src != c.Chosen {
				lossy[src] = true
			}
		}
	}

	for src, target := range m.forward {
		if lossy[src] {
			continue
		}
		// A target that is itself a source character maps forward again
		// under ToggleAll.
		if _, again := m.forward[target]; again {
			continue
		}
		s := string(src)
		assert.Equal(t, s, m.Convert(m.Convert(s, ToggleAll, true), ToggleAll, true), "round trip of %q", s)
	}
}

func TestCapsPreservation(t *testing.T) {
	m := EnglishHebrew()
	text := "Hello WORLD abc ABC שלום"
	for _, mode := range []Mode{ToggleAll, SourceToTargetOnly, TargetToSourceOnly} {
		out := []rune(m.Convert(text, mode, false))
		in := []rune(text)
		require.Len(t, out, len(in))
		for i, r := range in {
			if r >= 'A' && r <= 'Z' {
				assert.Equal(t, r, out[i], "mode %s index %d", mode, i)
			}
		}
	}
}

func TestModeIsolation(t *testing.T) {
	m := EnglishHebrew()
	text := "abc שלום 123 ?!"

	out := []rune(m.Convert(text, SourceToTargetOnly, true))
	for i, r := range []rune(text) {
		if _, ok := m.Forward(r); !ok {
			assert.Equal(t, r, out[i])
		}
	}

	out = []rune(m.Convert(text, TargetToSourceOnly, true))
	for i, r := range []rune(text) {
		if _, ok := m.Backward(r); !ok {
			assert.Equal(t, r, out[i])
		}
	}
}

func TestBackwardPrefersFirstSource(t *testing.T) {
	m := EnglishHebrew()

	r, ok := m.Backward('ש')
	require.True(t, ok)
	assert.Equal(t, 'a', r)

	// m, M and '.' all type ץ; the lowercase letter is listed first.
	r, ok = m.Backward('ץ')
	require.True(t, ok)
	assert.Equal(t, 'm', r)
}

func TestCollisions(t *testing.T) {
	m := EnglishHebrew()
	cols := m.Collisions()
	require.NotEmpty(t, cols)

	var tsadi *Collision
	for i := range cols {
		if i > 0 {
			assert.Less(t, cols[i-1].Target, cols[i].Target)
		}
		if cols[i].Target == 'ץ' {
			tsadi = &cols[i]
		}
	}
	require.NotNil(t, tsadi)
	assert.Equal(t, 'm', tsadi.Chosen)
	assert.Equal(t, []rune{'m', 'M', '.'}, tsadi.Sources)
}

func TestClassification(t *testing.T) {
	assert.True(t, ContainsTarget("שלום"))
	assert.False(t, ContainsTarget("hello"))
	assert.True(t, ContainsSource("hello"))
	assert.True(t, ContainsSource("X"))
	assert.False(t, ContainsSource("שלום 123"))
	assert.True(t, IsMixed("hello שלום"))
	assert.False(t, IsMixed("hello"))
	assert.False(t, IsMixed(""))
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"toggle_all", ToggleAll, false},
		{"", ToggleAll, false},
		{"source_to_target", SourceToTargetOnly, false},
		{"English_To_Hebrew", SourceToTargetOnly, false},
		{"target_to_source", TargetToSourceOnly, false},
		{"hebrew_to_english", TargetToSourceOnly, false},
		{"sideways", ToggleAll, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.String(), got.String())
		})
	}

	var mode Mode
	require.NoError(t, mode.UnmarshalText([]byte("target_to_source")))
	assert.Equal(t, TargetToSourceOnly, mode)
	text, err := mode.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "target_to_source", string(text))
}
