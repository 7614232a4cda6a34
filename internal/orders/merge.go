package orders

import "github.com/stockdesk/ai-proxy/internal/textnorm"

// Merge combines a model-produced candidate with the rule-based one for the
// same block. Text fields and lists prefer the model's non-empty value.
// Numeric fields prefer any value the model supplied, even "0", then the
// rule value, then a per-field default. A nil ai is treated as empty.
func Merge(ai *RawFields, rule RawFields) RawFields {
	if ai == nil {
		ai = &RawFields{}
	}
	return RawFields{
		Name:        pickText(ai.Name, rule.Name),
		Governorate: pickText(ai.Governorate, rule.Governorate),
		Address:     pickText(ai.Address, rule.Address),
		Phone:       pickText(ai.Phone, rule.Phone),
		Model:       pickText(ai.Model, rule.Model),
		Color:       pickText(ai.Color, rule.Color),
		Notes:       pickText(ai.Notes, rule.Notes),

		Phones: pickList(ai.Phones, rule.Phones),
		Models: pickList(ai.Models, rule.Models),
		Colors: pickList(ai.Colors, rule.Colors),

		Count:    pickNumber(ai.Count, rule.Count, "1"),
		Price:    pickNumber(ai.Price, rule.Price, ""),
		Discount: pickNumber(ai.Discount, rule.Discount, "0"),
		Shipping: pickNumber(ai.Shipping, rule.Shipping, "0"),
		CODTotal: pickNumber(ai.CODTotal, rule.CODTotal, ""),
	}
}

func pickText(ai, rule FlexString) FlexString {
	if v := textnorm.NormalizeSpaces(ai.String()); v != "" {
		return FlexString(v)
	}
	return rule
}

func pickList(ai, rule FlexList) FlexList {
	if len(ai) > 0 {
		return ai
	}
	return rule
}

func pickNumber(ai, rule *FlexString, def string) *FlexString {
	switch {
	case ai != nil:
		return Ptr(ai.String())
	case rule != nil:
		return Ptr(rule.String())
	default:
		return Ptr(def)
	}
}
