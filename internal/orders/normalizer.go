package orders

import (
	"math"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockdesk/ai-proxy/internal/textnorm"
)

// Confidence weights per present field. They sum to 1.
const (
	weightModel       = 0.28
	weightColor       = 0.22
	weightPhone       = 0.18
	weightName        = 0.12
	weightGovernorate = 0.08
	weightAddress     = 0.08
	weightPrice       = 0.04
)

var reAmount = regexp.MustCompile(`-?[0-9]+(?:\.[0-9]+)?`)

// Normalize turns a candidate into an Order stamped at now. It reports false
// when the candidate has no name, phone or address, since such a record
// cannot be traced back to a customer.
func Normalize(raw RawFields, now time.Time) (Order, bool) {
	o := Order{
		Name:        textnorm.NormalizeSpaces(raw.Name.String()),
		Governorate: textnorm.NormalizeSpaces(raw.Governorate.String()),
		Address:     textnorm.NormalizeSpaces(raw.Address.String()),
		Notes:       textnorm.NormalizeSpaces(raw.Notes.String()),
		Status:      StatusShipped,
		CreatedAt:   now,
	}

	o.Count = int(min(max(parseAmount(raw.Count), 1), maxCount))

	singleModel := textnorm.NormalizeModelName(raw.Model.String())
	models := AlignToCount(normalizeEach(raw.Models, textnorm.NormalizeModelName), o.Count, singleModel)
	o.Model = singleModel
	if o.Model == "" && len(models) > 0 {
		o.Model = models[0]
	}

	singleColor := textnorm.NormalizeColorName(raw.Color.String())
	colors := AlignToCount(normalizeEach(raw.Colors, textnorm.NormalizeColorName), o.Count, singleColor)
	color := singleColor
	if color == "" && len(colors) > 0 {
		color = colors[0]
	}

	phones := make([]string, 0, 1+len(raw.Phones))
	for _, p := range append([]string{raw.Phone.String()}, raw.Phones...) {
		if n := textnorm.NormalizePhone(p); n != "" && !slices.Contains(phones, n) {
			phones = append(phones, n)
		}
	}
	if len(phones) > 0 {
		o.Phone = phones[0]
	}
	if len(phones) > 1 {
		o.Phones = phones
	}

	units := resolveUnitColors(o.Count, models, o.Model, colors, color)
	o.Color = firstNonEmpty(units)
	if o.Color == "" {
		o.Color = textnorm.NormalizeColorForModel(o.Model, color)
	}
	if o.Color != "" {
		for i := range units {
			if units[i] == "" {
				units[i] = o.Color
			}
		}
	}
	if o.Count > 1 && !allEqual(units) {
		o.Colors = units
	}
	if o.Count > 1 && len(models) > 0 {
		o.Models = models
	}

	o.Price = parseAmount(raw.Price)
	o.Discount = parseAmount(raw.Discount)
	o.Shipping = parseAmount(raw.Shipping)
	o.CODTotal = codTotal(o.Price, o.Discount, o.Shipping)

	o.MissingFields, o.Confidence = assess(o)

	if o.Name == "" && o.Phone == "" && o.Address == "" {
		return o, false
	}
	return o, true
}

// resolveUnitColors maps each device to a color valid for its own model.
func resolveUnitColors(count int, models []string, model string, colors []string, color string) []string {
	units := make([]string, count)
	for i := range units {
		m := model
		if i < len(models) {
			m = models[i]
		}
		c := color
		if i < len(colors) {
			c = colors[i]
		}
		if c != "" {
			units[i] = textnorm.NormalizeColorForModel(m, c)
		}
	}
	return units
}

// assess lists the missing key fields and scores the order.
func assess(o Order) ([]string, float64) {
	checks := []struct {
		field   string
		present bool
		weight  float64
	}{
		{FieldName, o.Name != "", weightName},
		{FieldPhone, o.Phone != "", weightPhone},
		{FieldGovernorate, o.Governorate != "", weightGovernorate},
		{FieldAddress, o.Address != "", weightAddress},
		{FieldModel, o.Model != "", weightModel},
		{FieldColor, o.Color != "", weightColor},
		{FieldPrice, o.Price > 0, weightPrice},
	}

	missing := []string{}
	var score float64
	for _, c := range checks {
		if c.present {
			score += c.weight
		} else {
			missing = append(missing, c.field)
		}
	}
	score = math.Round(score*100) / 100
	return missing, min(max(score, 0), 1)
}

// parseAmount reads the first number in s as a whole, non-negative amount
// capped at maxAmount. Anything unreadable is 0.
func parseAmount(s *FlexString) int64 {
	if s == nil {
		return 0
	}
	text := strings.ReplaceAll(textnorm.NormalizeArabicDigits(s.String()), ",", "")
	tok := reAmount.FindString(text)
	if tok == "" {
		return 0
	}
	d, err := decimal.NewFromString(tok)
	if err != nil || d.IsNegative() {
		return 0
	}
	if d.GreaterThan(decimal.NewFromInt(maxAmount)) {
		return maxAmount
	}
	return d.IntPart()
}

func normalizeEach(items []string, normalize func(string) string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if n := normalize(it); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func firstNonEmpty(items []string) string {
	for _, it := range items {
		if it != "" {
			return it
		}
	}
	return ""
}

func allEqual(items []string) bool {
	for _, it := range items[1:] {
		if it != items[0] {
			return false
		}
	}
	return true
}
