package orders

import (
	"regexp"
	"strings"

	"github.com/stockdesk/ai-proxy/internal/textnorm"
)

var (
	// reTranscriptHeader matches a chat-export message header such as
	// "[12/3, 10:15 م] Ahmed:" or "[١٢/٣/٢٠٢٤، ١٠:١٥]".
	reTranscriptHeader = regexp.MustCompile(`^\s*\[\s*[0-9٠-٩]{1,2}/[0-9٠-٩]{1,2}(?:/[0-9٠-٩]{2,4})?\s*[,،]`)

	// reNameHeader matches a line that opens with a customer-name label.
	reNameHeader = regexp.MustCompile(`^\s*(?:اسم العميل|الاسم)(?:\s*[:：\-–]|\s|$)`)
)

// SplitBlocks splits a pasted transcript into one block per order. It first
// splits before every message header; if that yields at most one block it
// splits before every name label instead. Blocks are trimmed and empty ones
// dropped.
func SplitBlocks(text string) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	if blocks := splitBefore(lines, reTranscriptHeader); len(blocks) > 1 {
		return blocks
	}
	if blocks := splitBefore(lines, reNameHeader); len(blocks) > 1 {
		return blocks
	}
	if whole := strings.TrimSpace(text); whole != "" {
		return []string{whole}
	}
	return nil
}

func splitBefore(lines []string, marker *regexp.Regexp) []string {
	var (
		blocks  []string
		current []string
	)
	flush := func() {
		if b := strings.TrimSpace(strings.Join(current, "\n")); b != "" {
			blocks = append(blocks, b)
		}
		current = current[:0]
	}
	for _, line := range lines {
		if marker.MatchString(textnorm.StripBidiMarks(line)) {
			flush()
		}
		current = append(current, line)
	}
	flush()
	return blocks
}
