package orders

import (
	"errors"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/stockdesk/ai-proxy/internal/textnorm"
)

// maxCount bounds the number of devices in a single order.
const maxCount = 100

// maxAmount bounds every monetary field, in pounds. COD arithmetic on capped
// values cannot overflow int64.
const maxAmount int64 = 1_000_000_000

var (
	reBracketHeader = regexp.MustCompile(`^\s*\[[^\]\n]*\]\s*`)
	reSenderName    = regexp.MustCompile(`^([^:\n]{1,40}):\s*`)
	reSenderPhone   = regexp.MustCompile(`^\s*\+[0-9]{1,3}(?:[\s-]*[0-9]+){1,4}\s*:\s*`)

	reNameLabel    = regexp.MustCompile(`^(?:اسم العميل|الاسم)\s*[:：\-–]?\s*(.*)$`)
	reGovLabel     = regexp.MustCompile(`^(?:المحافظة|المحافظه|محافظة|محافظه)\s*[:：\-–]?\s*(.*)$`)
	reAddressLabel = regexp.MustCompile(`(?i)^(?:العنوان|عنوان|address)\s*[:：\-–]?\s*(.*)$`)
	reColorLabel   = regexp.MustCompile(`^(?:الالوان|الألوان|الوان|ألوان|اللون|لون)\s*[:：\-–]?\s*(.*)$`)

	reColorSeparators = regexp.MustCompile(`[,،/&]|\s+و\s+`)
	reLeadingMarker   = regexp.MustCompile(`^[\p{P}\p{S}\s\x{FE0F}]+`)
	reThousands       = regexp.MustCompile(`([0-9]),([0-9]{3})\b`)

	rePhone = regexp.MustCompile(`(?:\+?20[\s-]*)?0?1[0125](?:[\s-]*[0-9]){8}`)
	reCount = regexp.MustCompile(`(?i)(?:^|[^0-9])([0-9]{1,3})[ \t]*(?:[اأآ]يفون(?:ات)?|iphones?)`)
	reModel = regexp.MustCompile(`(?i)([اأآ]يفون|iphone)?\s*(1[567])\s*(برو\s*ماكس|بروماكس|برو|ماكس|pro\s*max|promax|pro|max)?`)

	reNumber         = regexp.MustCompile(`[0-9]+`)
	reDiscount       = regexp.MustCompile(`خصم[ \t]*[:：\-–=]?[ \t]*([0-9]+)`)
	reShippingAfter  = regexp.MustCompile(`(?i)(?:شحن|shipping)[ \t]*[:：\-–=]?[ \t]*([0-9]+)`)
	reShippingBefore = regexp.MustCompile(`(?i)([0-9]+)[ \t]*(?:ج|جنيه|le|egp)?\.?[ \t]*(?:لل)?(?:شحن|shipping)`)
)

var (
	// governorateStopWords disqualify a short line from the governorate guess.
	governorateStopWords = []string{"ايفون", "أيفون", "آيفون", "iphone", "برو", "pro", "ماكس", "max", "شحن", "shipping", "خصم", "جنيه", "عدد", "لون"}

	addressMarkers = []string{"⬅", "←", "👈", "➡", "→", "جوار"}
	noteMarkers    = []string{"⛔", "🚫", "الاستلام", "ملحوظة", "ملحوظه", "ملاحظة"}
)

const (
	minPrice = 3000
	maxPrice = 20000

	// maxGovernorateGuess is the longest line, in runes, accepted as a bare
	// governorate name.
	maxGovernorateGuess = 20
	addressContinuation = 3
)

// ExtractBlock reads one order block with keyword and pattern rules. It
// never fails; fields it cannot find are left empty.
func ExtractBlock(block string) RawFields {
	text := prepareBlock(block)
	lines := nonEmptyLines(text)
	phoneStripped := rePhone.ReplaceAllString(text, " ")

	var raw RawFields

	phones := extractPhones(text)
	if len(phones) > 0 {
		raw.Phone = FlexString(phones[0])
		raw.Phones = phones
	}

	name, nameIdx := extractName(lines)
	raw.Name = FlexString(name)
	raw.Governorate = FlexString(extractGovernorate(text, lines, nameIdx))
	raw.Address = FlexString(extractAddress(lines))

	count := extractCount(phoneStripped)
	raw.Count = Ptr(strconv.Itoa(count))
	raw.Models = AlignToCount(findModels(phoneStripped), count, "")
	raw.Colors = extractColors(lines)

	price, discount, shipping, hasDiscount, hasShipping := extractMoney(phoneStripped)
	if price > 0 {
		raw.Price = Ptr(strconv.FormatInt(price, 10))
	}
	if hasDiscount {
		raw.Discount = Ptr(strconv.FormatInt(discount, 10))
	}
	if hasShipping {
		raw.Shipping = Ptr(strconv.FormatInt(shipping, 10))
	}
	raw.CODTotal = Ptr(strconv.FormatInt(codTotal(price, discount, shipping), 10))

	raw.Notes = FlexString(extractNotes(lines))
	return raw
}

// prepareBlock drops a leading transcript header, cleans marks and digits,
// and folds thousands separators.
func prepareBlock(block string) string {
	text := textnorm.Clean(strings.ReplaceAll(block, "\r\n", "\n"))
	text = strings.TrimLeft(text, " \t\n")
	text = stripHeader(text)
	return reThousands.ReplaceAllString(text, "$1$2")
}

func stripHeader(text string) string {
	if loc := reBracketHeader.FindStringIndex(text); loc != nil {
		rest := text[loc[1]:]
		if m := reSenderName.FindStringSubmatch(rest); m != nil && !isLabelLine(m[1]) {
			rest = rest[len(m[0]):]
		}
		return rest
	}
	if loc := reSenderPhone.FindStringIndex(text); loc != nil {
		return text[loc[1]:]
	}
	return text
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func isLabelLine(line string) bool {
	line = strings.TrimSpace(line)
	return reNameLabel.MatchString(line) ||
		reGovLabel.MatchString(line) ||
		reAddressLabel.MatchString(line) ||
		reColorLabel.MatchString(line)
}

func containsAnyOf(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func extractPhones(text string) []string {
	var out []string
	for _, m := range rePhone.FindAllString(text, -1) {
		if p := textnorm.NormalizePhone(m); p != "" && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

// extractName prefers a labelled name line and otherwise takes the first
// line. It returns the index of the line used, or -1.
func extractName(lines []string) (string, int) {
	for i, l := range lines {
		m := reNameLabel.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		if v := cleanName(m[1]); v != "" {
			return v, i
		}
		if i+1 < len(lines) && !isLabelLine(lines[i+1]) {
			return cleanName(lines[i+1]), i + 1
		}
		return "", i
	}
	for i, l := range lines {
		if v := cleanName(reLeadingMarker.ReplaceAllString(l, "")); v != "" {
			return v, i
		}
	}
	return "", -1
}

func cleanName(s string) string {
	return textnorm.NormalizeSpaces(rePhone.ReplaceAllString(s, " "))
}

// extractGovernorate tries a labelled line, then a gazetteer hit anywhere in
// the block, then guesses the first short line without digits or product
// words. The guess can pick up an address fragment.
func extractGovernorate(text string, lines []string, nameIdx int) string {
	for _, l := range lines {
		if m := reGovLabel.FindStringSubmatch(l); m != nil {
			v := textnorm.NormalizeSpaces(m[1])
			if g := textnorm.ExtractGovernorate(v); g != "" {
				return g
			}
			if v != "" {
				return v
			}
		}
	}
	// Gazetteer pass before the guess, and the guess skips the name line; a
	// plain first-short-line guess returned the customer name too often.
	if g := textnorm.ExtractGovernorate(text); g != "" {
		return g
	}
	for i, l := range lines {
		if i == nameIdx || isLabelLine(l) || rePhone.MatchString(l) {
			continue
		}
		if utf8.RuneCountInString(l) > maxGovernorateGuess || strings.ContainsAny(l, "0123456789") {
			continue
		}
		if containsAnyOf(strings.ToLower(l), governorateStopWords) {
			continue
		}
		if v := textnorm.NormalizeSpaces(reLeadingMarker.ReplaceAllString(l, "")); v != "" {
			return v
		}
	}
	return ""
}

// extractAddress takes a labelled address plus up to three continuation
// lines, or else every line carrying a direction marker.
func extractAddress(lines []string) string {
	for i, l := range lines {
		m := reAddressLabel.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		parts := []string{m[1]}
		taken := 0
		for j := i + 1; j < len(lines) && taken < addressContinuation; j++ {
			next := lines[j]
			if rePhone.MatchString(next) {
				continue
			}
			// Stop at the next label, note or device line rather than always
			// taking three lines.
			if isLabelLine(next) || containsAnyOf(next, noteMarkers) || len(findModels(next)) > 0 {
				break
			}
			parts = append(parts, next)
			taken++
		}
		return textnorm.NormalizeSpaces(strings.Join(parts, " "))
	}

	var parts []string
	for _, l := range lines {
		if containsAnyOf(l, addressMarkers) {
			parts = append(parts, l)
		}
	}
	return textnorm.NormalizeSpaces(strings.Join(parts, " "))
}

// extractCount reads the number written before an iPhone token. Digits that
// themselves follow an iPhone token are a model generation, not a count.
func extractCount(text string) int {
	for _, m := range reCount.FindAllStringSubmatchIndex(text, -1) {
		if endsWithDeviceWord(text[:m[2]]) {
			continue
		}
		n, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil || n < 1 {
			return 1
		}
		return min(n, maxCount)
	}
	return 1
}

func endsWithDeviceWord(s string) bool {
	s = strings.ToLower(strings.TrimRight(s, " \t"))
	for _, w := range []string{"ايفون", "أيفون", "آيفون", "iphone"} {
		if strings.HasSuffix(s, w) {
			return true
		}
	}
	return false
}

// findModels lists model mentions in order. Mentions tagged with an iPhone
// or Pro/Max word are preferred; bare numbers count only when no tagged
// mention exists.
func findModels(text string) []string {
	var tagged, bare []string
	for _, m := range reModel.FindAllStringSubmatchIndex(text, -1) {
		ds, de := m[4], m[5]
		if (ds > 0 && isASCIIDigit(text[ds-1])) || (de < len(text) && isASCIIDigit(text[de])) {
			continue
		}
		model := textnorm.ModelForDigit(text[ds:de])
		if m[2] >= 0 || m[6] >= 0 {
			tagged = append(tagged, model)
		} else {
			bare = append(bare, model)
		}
	}
	if len(tagged) > 0 {
		return tagged
	}
	return bare
}

func isASCIIDigit(b byte) bool { return b >= '0' && b <= '9' }

// extractColors reads a labelled color list, then adds any color named on
// other lines. Order of first appearance is kept.
func extractColors(lines []string) []string {
	var colors []string
	add := func(cs ...string) {
		for _, c := range cs {
			if c != "" && !slices.Contains(colors, c) {
				colors = append(colors, c)
			}
		}
	}
	for _, l := range lines {
		if m := reColorLabel.FindStringSubmatch(l); m != nil {
			for _, piece := range reColorSeparators.Split(m[1], -1) {
				add(textnorm.FindColors(piece)...)
			}
			break
		}
	}
	for _, l := range lines {
		add(textnorm.FindColor(l))
	}
	return colors
}

func extractMoney(text string) (price, discount, shipping int64, hasDiscount, hasShipping bool) {
	for _, tok := range reNumber.FindAllString(text, -1) {
		if len(tok) > 5 {
			continue
		}
		n, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			continue
		}
		if n >= minPrice && n <= maxPrice && n > price {
			price = n
		}
	}
	if m := reDiscount.FindStringSubmatch(text); m != nil {
		discount, hasDiscount = parseDigits(m[1])
	}
	if m := reShippingAfter.FindStringSubmatch(text); m != nil {
		shipping, hasShipping = parseDigits(m[1])
	} else if m := reShippingBefore.FindStringSubmatch(text); m != nil {
		shipping, hasShipping = parseDigits(m[1])
	}
	return price, discount, shipping, hasDiscount, hasShipping
}

func parseDigits(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		return maxAmount, true
	}
	if err != nil {
		return 0, false
	}
	return min(n, maxAmount), true
}

// codTotal is price - discount + shipping, floored at 0. Inputs are clamped
// to [0, maxAmount] first.
func codTotal(price, discount, shipping int64) int64 {
	clamp := func(v int64) int64 { return min(max(v, 0), maxAmount) }
	return max(0, clamp(price)-clamp(discount)+clamp(shipping))
}

func extractNotes(lines []string) string {
	var notes []string
	for _, l := range lines {
		if containsAnyOf(l, noteMarkers) {
			notes = append(notes, l)
		}
	}
	return strings.Join(notes, " | ")
}
