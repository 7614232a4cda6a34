package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockdesk/ai-proxy/internal/jsonx"
)

func TestRoute(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Command
	}{
		{"add stock", "زود 3 ايفون 15 ازرق", AddStock("15", "ازرق", 3)},
		{"add stock arabic digits", "ضيف ٢ ايفون ١٦ سلفر", AddStock("16", "سلفر", 2)},
		{"add stock synonym color", "اضف 4 ايفون 17 اورنج", AddStock("17", "برتقالي", 4)},
		{"add stock silver synonym", "زود 2 ايفون 16 فضي", AddStock("16", "سلفر", 2)},
		{"add stock gold synonym", "زود 1 ايفون 16 ذهبي", AddStock("16", "دهبي", 1)},
		{"add stock extra color", "زود 2 ايفون 17 بنفسجي", AddStock("17", "بنفسجي", 2)},
		{"add stock zero count", "زود 0 ايفون 15 اسود", AddStock("15", "اسود", 1)},
		{"add stock count defaults", "توريد ايفون 16 كحلي", AddStock("16", "كحلي", 16)},
		{"add stock missing color", "زود ايفون", Unknown(MessageNeedModel)},
		{"add stock missing model", "زود 3 ازرق", Unknown(MessageNeedModel)},
		{"delete with keyword and governorate", "امسح أوردر محمد القاهرة", DeleteOrder("محمد", "القاهرة")},
		{"delete with colon", "احذف طلب: سارة أحمد", DeleteOrder("سارة أحمد", "")},
		{"delete without keyword", "امسح محمد", DeleteOrder("محمد", "")},
		{"delete bare verb", "امسح", DeleteOrder("", "")},
		{"cancel with keyword", "الغي طلب سارة الجيزة", CancelOrder("سارة", "الجيزة")},
		{"cancel english", "Cancel Ahmed", CancelOrder("Ahmed", "")},
		{"check stock arabic", "اعرض المخزن", CheckStock()},
		{"check stock english", "check stock please", CheckStock()},
		{"stock wins over add stock", "add stock 16 black", CheckStock()},
		{"empty", "", Unknown(MessageEmpty)},
		{"whitespace only", "   \n\t ", Unknown(MessageEmpty)},
		{"gibberish", "مرحبا", Unknown(MessageNotUnderstood)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Route(tt.in))
		})
	}
}

func TestRoute_DeleteBeatsCancel(t *testing.T) {
	got := Route("امسح والغي اوردر منى")
	assert.Equal(t, ActionDeleteOrder, got.Action)
	assert.Equal(t, "منى", got.Name)
}

func TestRuleNames(t *testing.T) {
	assert.Equal(t, []string{"check_stock", "delete_order", "cancel_order", "add_stock"}, ruleNames())
}

func TestCommandJSON(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{"add", AddStock("15", "ازرق", 3), `{"action":"add_stock","model":"15","color":"ازرق","count":3}`},
		{"delete keeps empty name", DeleteOrder("", ""), `{"action":"delete_order","name":""}`},
		{"cancel with governorate", CancelOrder("سارة", "الجيزة"), `{"action":"cancel_order","name":"سارة","governorate":"الجيزة"}`},
		{"check", CheckStock(), `{"action":"check_stock"}`},
		{"unknown", Unknown("x"), `{"action":"unknown","message":"x"}`},
		{"zero value", Command{}, `{"action":"unknown","message":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := jsonx.Marshal(tt.cmd)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func FuzzRoute(f *testing.F) {
	for _, seed := range []string{
		"زود 3 ايفون 15 ازرق",
		"امسح أوردر محمد القاهرة",
		"الغي طلب",
		"اعرض المخزن",
		"",
		"99999999999999999999999 زود 16 اسود",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, in string) {
		got := Route(in)
		switch got.Action {
		case ActionUnknown:
			if got.Message == "" {
				t.Fatalf("unknown without message for %q", in)
			}
		case ActionAddStock:
			if got.Model == "" || got.Color == "" || got.Count < 1 {
				t.Fatalf("incomplete add_stock %+v for %q", got, in)
			}
		case ActionDeleteOrder, ActionCancelOrder, ActionCheckStock:
		default:
			t.Fatalf("unexpected action %q", got.Action)
		}
	})
}
