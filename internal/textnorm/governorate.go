package textnorm

import "strings"

// governorates is the fixed gazetteer. ExtractGovernorate returns the first
// entry found, so list order breaks ties.
var governorates = []string{
	"القاهرة",
	"الجيزة",
	"الإسكندرية",
	"القليوبية",
	"الشرقية",
	"الغربية",
	"المنوفية",
	"الدقهلية",
	"الفيوم",
	"البحيرة",
	"دمياط",
	"سوهاج",
	"أسيوط",
	"قنا",
	"الأقصر",
	"أسوان",
	"المنيا",
	"بني سويف",
	"بورسعيد",
	"السويس",
	"الإسماعيلية",
	"مطروح",
	"الوادي الجديد",
	"شمال سيناء",
	"جنوب سيناء",
	"كفر الشيخ",
}

// ExtractGovernorate returns the first gazetteer name that appears as a
// literal substring of text, or "" when none does. Matching is a plain
// substring scan, so a name embedded in a longer word still matches.
func ExtractGovernorate(text string) string {
	if text == "" {
		return ""
	}
	for _, g := range governorates {
		if strings.Contains(text, g) {
			return g
		}
	}
	return ""
}
