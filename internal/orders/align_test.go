package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlignToCount(t *testing.T) {
	tests := []struct {
		name     string
		items    []string
		count    int
		fallback string
		want     []string
	}{
		{"exact", []string{"a", "b"}, 2, "", []string{"a", "b"}},
		{"truncate", []string{"a", "b", "c"}, 2, "", []string{"a", "b"}},
		{"pad with first", []string{"a", "b"}, 4, "z", []string{"a", "b", "a", "a"}},
		{"empty uses fallback", nil, 3, "z", []string{"z", "z", "z"}},
		{"empty without fallback", nil, 3, "", nil},
		{"zero count", []string{"a"}, 0, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AlignToCount(tt.items, tt.count, tt.fallback))
		})
	}
}

func TestAlignToCount_DoesNotShareBacking(t *testing.T) {
	items := []int{1, 2, 3}
	out := AlignToCount(items, 2, 0)
	out[0] = 9
	assert.Equal(t, 1, items[0])
}
