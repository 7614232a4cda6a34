package textnorm

import (
	"regexp"
	"strings"
)

// reEgyptMobile matches an Egyptian mobile number once everything but digits
// has been removed: optional leading 0, then 1, an operator digit, 8 more.
var reEgyptMobile = regexp.MustCompile(`0?1[0125][0-9]{8}`)

// NormalizePhone canonicalizes an Egyptian mobile number to its 11-digit
// local form ("01XXXXXXXXX"). A leading +20 or 20 country code is rewritten
// to 0. Returns "" when no mobile-shaped number is found.
func NormalizePhone(raw string) string {
	s := NormalizeArabicDigits(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	for i, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case strings.HasPrefix(digits, "+20"):
		digits = "0" + digits[3:]
	case strings.HasPrefix(digits, "20"):
		digits = "0" + digits[2:]
	}
	digits = strings.TrimPrefix(digits, "+")

	m := reEgyptMobile.FindString(digits)
	if m == "" {
		return ""
	}
	if m[0] != '0' {
		m = "0" + m
	}
	return m
}
