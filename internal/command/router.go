package command

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/stockdesk/ai-proxy/internal/textnorm"
)

// Hint messages returned with ActionUnknown.
const (
	MessageEmpty         = "اكتب أمر أولًا"
	MessageNeedModel     = "حدد الموديل واللون. مثال: زود 3 ايفون 15 ازرق"
	MessageNotUnderstood = "الأمر غير واضح. جرب: امسح أوردر محمد / زود 2 ايفون 16 سلفر / اعرض المخزن"
)

var (
	stockKeywords     = []string{"المخزن", "الجرد", "رصيد"}
	stockKeywordsLow  = []string{"check stock", "stock"}
	deleteKeywords    = []string{"امسح", "احذف", "حذف", "شيل"}
	cancelKeywords    = []string{"الغي", "إلغي"}
	cancelKeywordsLow = []string{"cancel"}
	addKeywords       = []string{"زود", "ضيف", "اضف", "أضف", "توريد"}
	addKeywordsLow    = []string{"add stock"}

	// nameKeywords introduce the customer name in delete/cancel commands.
	nameKeywords = []string{"اوردر", "أوردر", "طلب", "عميل"}

	// extraColors are accepted by add_stock even though they have no
	// canonical form.
	extraColors = []string{"بنفسجي", "وردي", "اخضر", "أخضر"}

	reLeadingSeparators = regexp.MustCompile(`^(?:\s|:|-|،)+`)
	reUpToDeleteVerb    = regexp.MustCompile(`^.*(?:امسح|احذف|حذف|شيل)`)
	reUpToCancelVerb    = regexp.MustCompile(`(?i)^.*(?:الغي|إلغي|cancel)`)
	reFirstNumber       = regexp.MustCompile(`[0-9]+`)
)

// rule is one classification step: when match reports true, build produces
// the command and no later rule is consulted.
type rule struct {
	name  string
	match func(text, lower string) bool
	build func(text string) Command
}

// rules are evaluated in order; the order is the tie-break between actions
// whose keywords overlap ("add stock" contains "stock").
var rules = []rule{
	{
		name: "check_stock",
		match: func(text, lower string) bool {
			return containsAny(text, stockKeywords) || containsAny(lower, stockKeywordsLow)
		},
		build: func(string) Command { return CheckStock() },
	},
	{
		name: "delete_order",
		match: func(text, _ string) bool {
			return containsAny(text, deleteKeywords)
		},
		build: func(text string) Command {
			name, gov := targetOrder(text, reUpToDeleteVerb)
			return DeleteOrder(name, gov)
		},
	},
	{
		name: "cancel_order",
		match: func(text, lower string) bool {
			return containsAny(text, cancelKeywords) || containsAny(lower, cancelKeywordsLow)
		},
		build: func(text string) Command {
			name, gov := targetOrder(text, reUpToCancelVerb)
			return CancelOrder(name, gov)
		},
	},
	{
		name: "add_stock",
		match: func(text, lower string) bool {
			return containsAny(text, addKeywords) || containsAny(lower, addKeywordsLow)
		},
		build: buildAddStock,
	},
}

// Route classifies text into exactly one Command. It never fails: anything
// it cannot understand becomes ActionUnknown with an Arabic usage hint.
func Route(raw string) Command {
	text := textnorm.NormalizeSpaces(textnorm.NormalizeArabicDigits(textnorm.StripBidiMarks(raw)))
	if text == "" {
		return Unknown(MessageEmpty)
	}

	lower := strings.ToLower(text)
	for _, r := range rules {
		if r.match(text, lower) {
			return r.build(text)
		}
	}
	return Unknown(MessageNotUnderstood)
}

// ruleNames lists the classification rules in evaluation order.
func ruleNames() []string {
	names := make([]string, 0, len(rules))
	for _, r := range rules {
		names = append(names, r.name)
	}
	return names
}

// targetOrder extracts the customer name and governorate for delete and
// cancel commands. The name follows one of nameKeywords; without one, it is
// whatever follows the action verb.
func targetOrder(text string, upToVerb *regexp.Regexp) (name, governorate string) {
	governorate = textnorm.ExtractGovernorate(text)
	if name = nameAfterKeywords(text); name != "" {
		return name, governorate
	}
	name = strings.TrimSpace(upToVerb.ReplaceAllString(text, ""))
	return textnorm.NormalizeSpaces(name), governorate
}

func nameAfterKeywords(text string) string {
	for _, kw := range nameKeywords {
		idx := strings.Index(text, kw)
		if idx == -1 {
			continue
		}
		rest := reLeadingSeparators.ReplaceAllString(text[idx+len(kw):], "")
		if gov := textnorm.ExtractGovernorate(rest); gov != "" {
			rest = strings.TrimSpace(strings.Replace(rest, gov, "", 1))
		}
		if rest != "" {
			return textnorm.NormalizeSpaces(rest)
		}
	}
	return ""
}

func buildAddStock(text string) Command {
	model := textnorm.DetectModelDigit(text)
	color := detectColor(text)
	if model == "" || color == "" {
		return Unknown(MessageNeedModel)
	}
	return AddStock(model, color, detectCount(text))
}

func detectColor(text string) string {
	if c := textnorm.FindColor(text); c != "" {
		return c
	}
	for _, c := range extraColors {
		if strings.Contains(text, c) {
			return strings.Replace(c, "أ", "ا", 1)
		}
	}
	return ""
}

// detectCount reads the first run of digits; zero, overflow or absence all
// mean 1.
func detectCount(text string) int {
	m := reFirstNumber.FindString(text)
	if m == "" {
		return 1
	}
	n, err := strconv.Atoi(m)
	if err != nil || n <= 0 {
		return 1
	}
	return n
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
