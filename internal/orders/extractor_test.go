package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBlock_LabelledOrder(t *testing.T) {
	raw := ExtractBlock(blockTwoDevices)

	assert.Equal(t, FlexString("محمد علي"), raw.Name)
	assert.Equal(t, FlexString("الجيزة"), raw.Governorate)
	assert.Equal(t, FlexString("شارع الهرم بجوار مسجد النور"), raw.Address)
	assert.Equal(t, FlexString("01012345678"), raw.Phone)
	assert.Equal(t, FlexList{"01012345678"}, raw.Phones)
	assert.Equal(t, FlexList{"16 Pro Max", "16 Pro Max"}, raw.Models)
	assert.Equal(t, FlexList{"ازرق", "سلفر"}, raw.Colors)
	assert.Equal(t, FlexString("ملحوظة: الاستلام بعد العصر"), raw.Notes)

	require.NotNil(t, raw.Count)
	assert.Equal(t, "2", raw.Count.String())
	require.NotNil(t, raw.Price)
	assert.Equal(t, "15000", raw.Price.String())
	require.NotNil(t, raw.Discount)
	assert.Equal(t, "500", raw.Discount.String())
	require.NotNil(t, raw.Shipping)
	assert.Equal(t, "100", raw.Shipping.String())
	require.NotNil(t, raw.CODTotal)
	assert.Equal(t, "14600", raw.CODTotal.String())
}

func TestExtractBlock_GazetteerAndPhones(t *testing.T) {
	raw := ExtractBlock(blockTwoPhones)

	assert.Equal(t, FlexString("أحمد حسن"), raw.Name)
	assert.Equal(t, FlexString("القاهرة"), raw.Governorate)
	assert.Equal(t, FlexString(""), raw.Address)
	assert.Equal(t, FlexString("01112223334"), raw.Phone)
	assert.Equal(t, FlexList{"01112223334", "01223334445"}, raw.Phones)
	assert.Equal(t, FlexList{"15 Pro Max"}, raw.Models)
	assert.Equal(t, FlexList{"اسود"}, raw.Colors)
	assert.Nil(t, raw.Price)
	assert.Nil(t, raw.Discount)
	assert.Nil(t, raw.Shipping)
	assert.Equal(t, "0", raw.CODTotal.String())
}

func TestExtractBlock_SenderPhonePrefixIsNotACustomerPhone(t *testing.T) {
	raw := ExtractBlock("+20 100 123 4567: اسم العميل: سارة\n01112223334")

	assert.Equal(t, FlexString("سارة"), raw.Name)
	assert.Equal(t, FlexList{"01112223334"}, raw.Phones)
}

func TestExtractBlock_ArrowAddressAndGovernorateGuess(t *testing.T) {
	raw := ExtractBlock("محمد\n01012345678\n⬅️ شارع التحرير\nبجوار البنك")

	assert.Equal(t, FlexString("محمد"), raw.Name)
	assert.Contains(t, raw.Address.String(), "شارع التحرير")
	assert.Contains(t, raw.Address.String(), "بجوار البنك")
	// The short-line guess has nothing better than the street.
	assert.Equal(t, FlexString("شارع التحرير"), raw.Governorate)
}

func TestExtractBlock_GovernorateGuessSkipsName(t *testing.T) {
	raw := ExtractBlock("سارة\n01012345678\nحي الزهور")

	assert.Equal(t, FlexString("سارة"), raw.Name)
	assert.Equal(t, FlexString("حي الزهور"), raw.Governorate)
}

func TestExtractBlock_GazetteerBeatsGuess(t *testing.T) {
	raw := ExtractBlock("سارة\nحي الزهور\n01012345678\nالقاهرة")

	assert.Equal(t, FlexString("القاهرة"), raw.Governorate)
}

func TestExtractBlock_AddressStopsAtNextField(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"label", "العنوان: شارع النيل\nبجوار الصيدلية\nالمحافظة: الجيزة\nالدور التالت"},
		{"note", "العنوان: شارع النيل\nبجوار الصيدلية\nملحوظة: بعد العصر\nالدور التالت"},
		{"device", "العنوان: شارع النيل\nبجوار الصيدلية\nايفون 16 اسود\nالدور التالت"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, FlexString("شارع النيل بجوار الصيدلية"), ExtractBlock(tt.in).Address)
		})
	}
}

func TestExtractBlock_CountAndShippingBeforeKeyword(t *testing.T) {
	raw := ExtractBlock("اسم العميل: محمد\n01012345678\n3 ايفون 17 برتقالي\nالسعر 13500 جنيه\n50 ج شحن")

	assert.Equal(t, "3", raw.Count.String())
	assert.Equal(t, FlexList{"17 Pro Max", "17 Pro Max", "17 Pro Max"}, raw.Models)
	assert.Equal(t, FlexList{"برتقالي"}, raw.Colors)
	assert.Equal(t, "13500", raw.Price.String())
	assert.Equal(t, "50", raw.Shipping.String())
	assert.Nil(t, raw.Discount)
	assert.Equal(t, "13550", raw.CODTotal.String())
}

func TestExtractBlock_ArabicDigitsAndDiacritics(t *testing.T) {
	raw := ExtractBlock("الاسم: مُحَمَّد\n٠١٠١٢٣٤٥٦٧٨\nايفون ١٦ دهبي")

	assert.Equal(t, FlexString("محمد"), raw.Name)
	assert.Equal(t, FlexString("01012345678"), raw.Phone)
	assert.Equal(t, FlexList{"16 Pro Max"}, raw.Models)
	assert.Equal(t, FlexList{"دهبي"}, raw.Colors)
}

func TestExtractBlock_Empty(t *testing.T) {
	raw := ExtractBlock("")
	assert.Empty(t, raw.Name)
	assert.Empty(t, raw.Phones)
	assert.Equal(t, "1", raw.Count.String())
}

func TestFindModels(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"ايفون 17 شارع 15", []string{"17 Pro Max"}},
		{"موديل 16", []string{"16 Pro Max"}},
		{"15000 و 2016", nil},
		{"iPhone 16 Pro, iPhone 17 Pro Max", []string{"16 Pro Max", "17 Pro Max"}},
		{"16 برو ماكس", []string{"16 Pro Max"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, findModels(tt.in))
		})
	}
}

func TestExtractNotes(t *testing.T) {
	lines := []string{"⛔ ممنوع الفتح", "عادي", "🚫 لا يوجد استبدال"}
	assert.Equal(t, "⛔ ممنوع الفتح | 🚫 لا يوجد استبدال", extractNotes(lines))
	assert.Equal(t, "", extractNotes([]string{"عادي"}))
}

func TestExtractMoney(t *testing.T) {
	price, discount, shipping, hasDiscount, hasShipping := extractMoney("السعر 2500\nالسعر 12000 او 25000\nخصم: 300\nالشحن 60")
	assert.Equal(t, int64(12000), price)
	assert.Equal(t, int64(300), discount)
	assert.Equal(t, int64(60), shipping)
	assert.True(t, hasDiscount)
	assert.True(t, hasShipping)
}

func TestExtractCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"2 ايفون 16 برو ماكس", 2},
		{"iPhone 15 iPhone 16", 1},
		{"ايفون 15 و 2 ايفون 16", 2},
		{"ايفون16 ايفون 17", 1},
		{"500 iphones", maxCount},
		{"ايفون 16", 1},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, extractCount(tt.in))
		})
	}

	raw := ExtractBlock("الاسم: محمد\n01012345678\niPhone 15 iPhone 16")
	assert.Equal(t, "1", raw.Count.String())
}

func TestCODTotalIsClamped(t *testing.T) {
	n, ok := parseDigits("99999999999999999999")
	assert.True(t, ok)
	assert.Equal(t, maxAmount, n)

	assert.Equal(t, 2*maxAmount, codTotal(9e18, 0, 9e18))
	assert.Equal(t, int64(0), codTotal(-5, 0, 0))
	assert.Equal(t, int64(14600), codTotal(15000, 500, 100))
}
