// Package normalize converts free-form queries in Arabic script or romanized Arabic
// into canonical forms for embedding and literal matching.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var arabicRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0600, Hi: 0x06FF, Stride: 1},
		{Lo: 0x0750, Hi: 0x077F, Stride: 1},
		{Lo: 0x08A0, Hi: 0x08FF, Stride: 1},
		{Lo: 0xFB50, Hi: 0xFDFF, Stride: 1},
		{Lo: 0xFE70, Hi: 0xFEFF, Stride: 1},
	},
}

var diacriticRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0610, Hi: 0x061A, Stride: 1},
		{Lo: 0x064B, Hi: 0x065F, Stride: 1},
		{Lo: 0x0670, Hi: 0x0670, Stride: 1},
		{Lo: 0x06D6, Hi: 0x06DC, Stride: 1},
		{Lo: 0x06DF, Hi: 0x06E4, Stride: 1},
		{Lo: 0x06E7, Hi: 0x06E8, Stride: 1},
		{Lo: 0x06EA, Hi: 0x06ED, Stride: 1},
	},
}

var letterFolds = strings.NewReplacer(
	"أ", "ا",
	"إ", "ا",
	"آ", "ا",
	"ٱ", "ا",
	"ة", "ه",
	"ي", "ى",
	"ئ", "ى",
)

// Applied in order; the diacritised form must run before diacritics are stripped.
var typoFixes = []struct{ typo, fix string }{
	{"وَهْدَهُ", "وَحْدَهُ"},
	{"وهده", "وحده"},
	{"الهه", "الله"},
}

// IsArabic reports whether s contains any Arabic-script rune, presentation forms included.
func IsArabic(s string) bool {
	for _, r := range s {
		if unicode.Is(arabicRanges, r) {
			return true
		}
	}
	return false
}

// StripDiacritics removes Arabic combining marks.
func StripDiacritics(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.Is(diacriticRanges, r) {
			return -1
		}
		return r
	}, s)
}

// FixTypos rewrites common misspellings.
func FixTypos(s string) string {
	for _, t := range typoFixes {
		s = strings.ReplaceAll(s, t.typo, t.fix)
	}
	return s
}

// NormalizeArabic strips diacritics, applies NFKC, folds letter variants, and
// collapses whitespace. It is idempotent.
func NormalizeArabic(s string) string {
	s = FixTypos(s)
	s = StripDiacritics(s)
	s = norm.NFKC.String(s)
	// NFKC can expand presentation forms into base letter plus mark.
	s = StripDiacritics(s)
	s = letterFolds.Replace(s)
	s = CollapseWhitespace(s)
	return FixTypos(s)
}

// CollapseWhitespace trims s and replaces each run of whitespace with one space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
