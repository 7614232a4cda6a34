package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMerge_NilCandidateUsesRulesAndDefaults(t *testing.T) {
	rule := RawFields{Name: "محمد", Phones: FlexList{"01012345678"}, Price: Ptr("15000")}

	got := Merge(nil, rule)

	assert.Equal(t, FlexString("محمد"), got.Name)
	assert.Equal(t, FlexList{"01012345678"}, got.Phones)
	assert.Equal(t, "15000", got.Price.String())
	assert.Equal(t, "1", got.Count.String())
	assert.Equal(t, "0", got.Discount.String())
	assert.Equal(t, "0", got.Shipping.String())
	assert.Equal(t, "", got.CODTotal.String())
}

func TestMerge_PrefersNonEmptyCandidateText(t *testing.T) {
	ai := &RawFields{Name: "  محمد   علي ", Address: "   ", Colors: FlexList{"اسود"}}
	rule := RawFields{Name: "محمد", Address: "شارع الهرم", Colors: FlexList{"ازرق", "سلفر"}, Models: FlexList{"16 Pro Max"}}

	got := Merge(ai, rule)

	assert.Equal(t, FlexString("محمد علي"), got.Name)
	assert.Equal(t, FlexString("شارع الهرم"), got.Address)
	assert.Equal(t, FlexList{"اسود"}, got.Colors)
	assert.Equal(t, FlexList{"16 Pro Max"}, got.Models)
}

func TestMerge_CandidateNumbersWinEvenWhenZero(t *testing.T) {
	ai := &RawFields{Price: Ptr("0"), Count: Ptr("")}
	rule := RawFields{Price: Ptr("15000"), Count: Ptr("2"), Shipping: Ptr("60")}

	got := Merge(ai, rule)

	assert.Equal(t, "0", got.Price.String())
	assert.Equal(t, "", got.Count.String())
	assert.Equal(t, "60", got.Shipping.String())
	assert.Equal(t, "0", got.Discount.String())
}

func TestMerge_DoesNotAliasInputs(t *testing.T) {
	ai := &RawFields{Price: Ptr("100")}
	got := Merge(ai, RawFields{})
	*got.Price = "999"
	assert.Equal(t, "100", ai.Price.String())
}

func TestRawFields_IsEmpty(t *testing.T) {
	assert.True(t, RawFields{}.IsEmpty())
	assert.False(t, RawFields{Colors: FlexList{"اسود"}}.IsEmpty())
	assert.False(t, RawFields{Discount: Ptr("0")}.IsEmpty())
}
