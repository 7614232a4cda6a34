package orders

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitBlocks_TranscriptHeaders(t *testing.T) {
	text := "[12/3, 10:15 م] Sara: اسم العميل: محمد\n01012345678\n" +
		"[12/3, 10:20 م] Sara: الاسم: أحمد\n01112223334\n"

	blocks := SplitBlocks(text)
	require.Len(t, blocks, 2)
	assert.True(t, strings.HasPrefix(blocks[0], "[12/3, 10:15 م]"))
	assert.True(t, strings.HasPrefix(blocks[1], "[12/3, 10:20 م]"))
	assert.Contains(t, blocks[0], "01012345678")
	assert.NotContains(t, blocks[0], "أحمد")
}

func TestSplitBlocks_ArabicDigitHeaders(t *testing.T) {
	text := "[١٢/٣، ١٠:١٥] Sara: طلب اول\n[١٢/٣، ١٠:٢٠] Sara: طلب تاني"
	assert.Len(t, SplitBlocks(text), 2)
}

func TestSplitBlocks_IgnoresLeadingBidiMark(t *testing.T) {
	text := "\u200e[12/3, 10:15] Sara: a\n\u200e[12/3, 10:16] Sara: b"
	assert.Len(t, SplitBlocks(text), 2)
}

func TestSplitBlocks_NameLabels(t *testing.T) {
	text := "اسم العميل: محمد\n01012345678\n\nالاسم - سارة\n01112223334"

	blocks := SplitBlocks(text)
	require.Len(t, blocks, 2)
	assert.Equal(t, "اسم العميل: محمد\n01012345678", blocks[0])
	assert.Equal(t, "الاسم - سارة\n01112223334", blocks[1])
}

func TestSplitBlocks_SingleHeaderFallsBackToNameLabels(t *testing.T) {
	text := "[12/3, 10:15] Sara: الطلبات\nاسم العميل: محمد\nاسم العميل: سارة"
	assert.Len(t, SplitBlocks(text), 3)
}

func TestSplitBlocks_WholeText(t *testing.T) {
	assert.Equal(t, []string{"محمد 01012345678"}, SplitBlocks("  محمد 01012345678 \n"))
	assert.Nil(t, SplitBlocks(" \n\t"))
}

func TestSplitBlocks_DropsEmptyBlocks(t *testing.T) {
	text := "[1/1, 9:00] A: x\n\n\n[1/1, 9:01] B: y"
	for _, b := range SplitBlocks(text) {
		assert.NotEmpty(t, b)
		assert.Equal(t, strings.TrimSpace(b), b)
	}
}
