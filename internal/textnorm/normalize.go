// Package textnorm provides the text normalizers used by the command router
// and the order extractor: whitespace collapsing, Arabic mark stripping,
// digit folding, and canonicalization of phones, colors, models and
// governorates.
//
// Every function is total: unparseable input yields "" (or the input
// unchanged for the pure string cleaners), never a panic or an error.
// All functions are safe for concurrent use.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var reSpaces = regexp.MustCompile(`\s+`)

// arabicMarks covers tashkeel, superscript alef, Qur'anic annotation signs
// and tatweel.
var arabicMarks = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0610, Hi: 0x061A, Stride: 1},
		{Lo: 0x0640, Hi: 0x0640, Stride: 1},
		{Lo: 0x064B, Hi: 0x065F, Stride: 1},
		{Lo: 0x0670, Hi: 0x0670, Stride: 1},
		{Lo: 0x06D6, Hi: 0x06DC, Stride: 1},
		{Lo: 0x06DF, Hi: 0x06E8, Stride: 1},
		{Lo: 0x06EA, Hi: 0x06ED, Stride: 1},
	},
}

// bidiMarks covers direction controls and the zero-width joiners that
// messaging apps sprinkle around numbers.
var bidiMarks = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x061C, Hi: 0x061C, Stride: 1},
		{Lo: 0x200B, Hi: 0x200F, Stride: 1},
		{Lo: 0x202A, Hi: 0x202E, Stride: 1},
		{Lo: 0x2066, Hi: 0x2069, Stride: 1},
		{Lo: 0xFEFF, Hi: 0xFEFF, Stride: 1},
	},
}

// NormalizeSpaces collapses every whitespace run to a single space and trims
// both ends.
func NormalizeSpaces(s string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

// StripDiacritics removes Arabic combining marks. The text is composed to
// NFC afterwards so that decomposed hamza forms survive as letters.
func StripDiacritics(s string) string {
	t := transform.Chain(runes.Remove(runes.In(arabicMarks)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// StripBidiMarks removes left-to-right / right-to-left control characters.
func StripBidiMarks(s string) string {
	out, _, err := transform.String(runes.Remove(runes.In(bidiMarks)), s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeArabicDigits maps Arabic-Indic (and Extended Arabic-Indic) digits
// to ASCII. Other runes pass through unchanged.
func NormalizeArabicDigits(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '٠' && r <= '٩':
			return '0' + (r - '٠')
		case r >= '۰' && r <= '۹':
			return '0' + (r - '۰')
		}
		return r
	}, s)
}

// Clean applies the full cleaning chain used before any pattern matching:
// diacritics, bidi marks, then digit folding.
func Clean(s string) string {
	return NormalizeArabicDigits(StripBidiMarks(StripDiacritics(s)))
}

// foldLetters unifies alef and yeh spellings so that synonym lookups do not
// depend on how the user typed hamza.
var foldLetters = strings.NewReplacer(
	"أ", "ا",
	"إ", "ا",
	"آ", "ا",
	"ى", "ي",
	"ة", "ه",
)

// fold lowercases, strips marks, unifies letter variants and collapses
// whitespace.
func fold(s string) string {
	s = strings.ToLower(StripBidiMarks(StripDiacritics(s)))
	return NormalizeSpaces(foldLetters.Replace(s))
}

// compact is fold without any whitespace.
func compact(s string) string {
	return strings.ReplaceAll(fold(s), " ", "")
}
