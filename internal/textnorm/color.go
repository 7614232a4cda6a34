package textnorm

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Canonical colors. Every color phrasing is folded to one of these.
const (
	ColorSilver   = "سلفر"
	ColorBlack    = "اسود"
	ColorBlue     = "ازرق"
	ColorGold     = "دهبي"
	ColorOrange   = "برتقالي"
	ColorNavy     = "كحلي"
	ColorTitanium = "تيتانيوم"
)

// colorSynonym pairs a canonical color with the spellings that fold to it.
type colorSynonym struct {
	canonical string
	spellings []string
}

// colorTable is scanned in order for substring matches, so the order is
// load-bearing: navy before blue ("ديب بلو" contains "بلو"), and titanium
// last because most titanium finishes also name a color ("black titanium").
var colorTable = []colorSynonym{
	{ColorNavy, []string{"كحلي", "كحلى", "نيفي", "navy", "deep blue", "ديب بلو", "ديبلو", "دارك بلو", "darkblue", "dark blue"}},
	{ColorBlue, []string{"ازرق", "أزرق", "زرقاء", "لبني", "سماوي", "blue", "بلو"}},
	{ColorBlack, []string{"اسود", "أسود", "سوداء", "سودا", "black", "بلاك"}},
	{ColorSilver, []string{"سلفر", "سيلفر", "فضي", "فضى", "ابيض", "أبيض", "بيضاء", "بيضا", "silver", "white", "وايت"}},
	{ColorGold, []string{"دهبي", "ذهبي", "دهبى", "ذهبى", "جولد", "جولدن", "gold", "golden", "desert", "ديزرت", "صحراوي"}},
	{ColorOrange, []string{"برتقالي", "برتقالى", "اورنج", "أورنج", "اورانج", "orange", "cosmic orange"}},
	{ColorTitanium, []string{"تيتانيوم", "تيتانيم", "تيتانوم", "تيتنيوم", "ناتشورال", "ناتشرال", "ناتورال", "natural", "titanium"}},
}

// colorExact maps every compacted spelling to its canonical color.
var colorExact = map[string]string{}

func init() {
	for i := range colorTable {
		for j, s := range colorTable[i].spellings {
			s = fold(s)
			colorTable[i].spellings[j] = s
			c := strings.ReplaceAll(s, " ", "")
			if _, dup := colorExact[c]; !dup {
				colorExact[c] = colorTable[i].canonical
			}
		}
	}
}

// modelPalettes lists the colors each model ships in.
var modelPalettes = map[string][]string{
	"15": {ColorTitanium, ColorBlue, ColorSilver, ColorBlack},
	"16": {ColorTitanium, ColorGold, ColorSilver, ColorBlack, ColorNavy},
	"17": {ColorSilver, ColorOrange, ColorNavy},
}

// canonicalColors returns the seven canonical color names.
func canonicalColors() []string {
	out := make([]string, 0, len(colorTable))
	for _, c := range colorTable {
		out = append(out, c.canonical)
	}
	return out
}

// palette returns the colors available for a model ("15", "16 Pro Max", ...),
// or nil when the model is unknown.
func palette(model string) []string {
	return slices.Clone(modelPalettes[DetectModelDigit(model)])
}

// NormalizeColorName folds a color phrase to one of the canonical colors.
// An exact spelling match wins; otherwise the first table entry found in the
// phrase. Returns "" when nothing matches.
func NormalizeColorName(raw string) string {
	c := compact(raw)
	if c == "" {
		return ""
	}
	if canonical, ok := colorExact[c]; ok {
		return canonical
	}
	return scanColor(fold(raw))
}

// FindColor looks for a single color name embedded anywhere in a line of
// free text.
func FindColor(line string) string {
	return scanColor(fold(line))
}

// colorPrefixes are the attached particles allowed in front of a short color
// word ("والاسود", "بالازرق").
var colorPrefixes = []string{"وال", "بال", "لل", "ال", "و", "ب"}

// FindColors returns every color named in the text, canonicalized, in order
// of appearance and without repeats.
func FindColors(text string) []string {
	words := colorWords(fold(text))
	var out []string
	for i := 0; i < len(words); i++ {
		canonical, span := colorAt(words, i)
		if canonical == "" {
			continue
		}
		if !slices.Contains(out, canonical) {
			out = append(out, canonical)
		}
		i += span - 1
	}
	return out
}

// colorAt matches a spelling starting at words[i], preferring multi-word
// spellings. It returns the canonical color and the number of words used.
func colorAt(words []string, i int) (string, int) {
	for _, entry := range colorTable {
		for _, s := range entry.spellings {
			parts := strings.Fields(s)
			if len(parts) < 2 || i+len(parts) > len(words) {
				continue
			}
			if slices.Equal(words[i:i+len(parts)], parts) {
				return entry.canonical, len(parts)
			}
		}
	}
	for _, entry := range colorTable {
		for _, s := range entry.spellings {
			if !strings.Contains(s, " ") && wordHasColor(words[i], s) {
				return entry.canonical, 1
			}
		}
	}
	return "", 0
}

func colorWords(folded string) []string {
	return strings.Fields(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, folded))
}

func scanColor(folded string) string {
	words := colorWords(folded)
	if len(words) == 0 {
		return ""
	}
	joined := " " + strings.Join(words, " ") + " "
	for _, entry := range colorTable {
		for _, s := range entry.spellings {
			if strings.Contains(s, " ") {
				if strings.Contains(joined, " "+s+" ") {
					return entry.canonical
				}
				continue
			}
			for _, w := range words {
				if wordHasColor(w, s) {
					return entry.canonical
				}
			}
		}
	}
	return ""
}

// wordHasColor reports whether w spells s, optionally behind an attached
// particle. Spellings of four or more letters may also sit anywhere inside w.
func wordHasColor(w, s string) bool {
	if w == s {
		return true
	}
	for _, p := range colorPrefixes {
		if strings.TrimPrefix(w, p) == s {
			return true
		}
	}
	return utf8.RuneCountInString(s) >= 4 && strings.Contains(w, s)
}

// NormalizeColorForModel normalizes a color and, when the model's palette
// does not offer it, swaps blue and navy if the palette only has the other
// one. Colors outside the palette are otherwise returned unchanged.
func NormalizeColorForModel(model, rawColor string) string {
	color := NormalizeColorName(rawColor)
	if color == "" {
		return ""
	}
	offered := modelPalettes[DetectModelDigit(model)]
	if offered == nil || slices.Contains(offered, color) {
		return color
	}
	switch color {
	case ColorBlue:
		if slices.Contains(offered, ColorNavy) {
			return ColorNavy
		}
	case ColorNavy:
		if slices.Contains(offered, ColorBlue) {
			return ColorBlue
		}
	}
	return color
}
