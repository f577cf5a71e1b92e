package grid

import (
	"fmt"

	"github.com/mattn/go-runewidth"
)

// WidthFunc returns the number of monospace columns a string occupies.
type WidthFunc func(string) int

// Width counts two columns for every rune in the CJK Unified Ideographs block
// (U+4E00..U+9FA5) or the halfwidth and fullwidth forms block
// (U+FF00..U+FFEF) and one column for everything else.
func Width(s string) int {
	n := 0
	for _, r := range s {
		if (r >= '\u4e00' && r <= '\u9fa5') || (r >= '\uff00' && r <= '\uffef') {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// UnicodeWidth measures s with the East Asian Width tables, which also cover
// kana, hangul, emoji and zero-width runes.
func UnicodeWidth(s string) int {
	return runewidth.StringWidth(s)
}

// WidthRule resolves a configured width rule name. An empty name selects "cjk".
func WidthRule(name string) (WidthFunc, error) {
	switch name {
	case "", "cjk":
		return Width, nil
	case "unicode":
		return UnicodeWidth, nil
	}
	return nil, fmt.Errorf("unknown width rule %q, expected cjk or unicode", name)
}
