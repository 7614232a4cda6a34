package textnorm

import "regexp"

// Supported model generations, checked in this order so that 17 wins over
// 16 and 16 over 15 when a text mentions several.
var modelDigitPatterns = []struct {
	digit string
	re    *regexp.Regexp
}{
	{"17", regexp.MustCompile(`(?:^|[^0-9])17(?:[^0-9]|$)`)},
	{"16", regexp.MustCompile(`(?:^|[^0-9])16(?:[^0-9]|$)`)},
	{"15", regexp.MustCompile(`(?:^|[^0-9])15(?:[^0-9]|$)`)},
}

// ModelSuffix is appended to the generation digit in canonical model names.
const ModelSuffix = " Pro Max"

// DetectModelDigit returns "17", "16" or "15" when the text mentions that
// number on its own (not as part of a longer number), else "".
func DetectModelDigit(text string) string {
	s := NormalizeArabicDigits(text)
	for _, p := range modelDigitPatterns {
		if p.re.MatchString(s) {
			return p.digit
		}
	}
	return ""
}

// NormalizeModelName canonicalizes a model mention to "15 Pro Max",
// "16 Pro Max" or "17 Pro Max". Returns "" when no generation is found.
func NormalizeModelName(raw string) string {
	d := DetectModelDigit(raw)
	if d == "" {
		return ""
	}
	return d + ModelSuffix
}

// ModelForDigit formats a generation digit as a canonical model name.
func ModelForDigit(digit string) string {
	if _, ok := modelPalettes[digit]; !ok {
		return ""
	}
	return digit + ModelSuffix
}
