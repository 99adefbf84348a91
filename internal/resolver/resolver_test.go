package resolver

import (
	"fmt"
	"testing"

	"github.com/avvvet/officebuddy/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func desks(n int) []map[string]any {
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = map[string]any{
			"id":         fmt.Sprintf("00000000-0000-4000-8000-%012d", i+1),
			"desk_code":  fmt.Sprintf("DSK-%03d", i+1),
			"room_label": "Floor 2",
		}
	}
	return out
}

func TestSelectByNumber(t *testing.T) {
	for n := 1; n <= MaxOptions; n++ {
		options := desks(n)
		for k := -1; k <= n+2; k++ {
			idx, ok := Select(fmt.Sprint(k), options, "desk_code")
			if k >= 1 && k <= n {
				require.True(t, ok, "n=%d k=%d", n, k)
				assert.Equal(t, k-1, idx)
			} else {
				assert.False(t, ok, "n=%d k=%d", n, k)
			}
		}
	}
}

func TestSelectBeyondDisplayedOptions(t *testing.T) {
	_, ok := Select("16", desks(20), "")
	assert.False(t, ok)
}

func TestSelectByName(t *testing.T) {
	menu := []map[string]any{
		{"id": "a", "name": "Masala Tea"},
		{"id": "b", "name": "Green Tea"},
		{"id": "c", "name": "Cold Coffee"},
	}

	tests := []struct {
		reply string
		want  int
		ok    bool
	}{
		{"the tea", 0, true}, // first match in list order
		{"tea", 0, true},
		{"GREEN TEA", 1, true},
		{"I'd like a cold coffee please", 2, true},
		{"coffee", 2, true},
		{"juice", -1, false},
		{"", -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			idx, ok := Select(tt.reply, menu, "name")
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, idx)
			}
		})
	}
}

func TestResolveFlatMergesCollected(t *testing.T) {
	pending := &models.PendingAction{
		TargetOperationID: "desk_book",
		CollectedParams:   map[string]any{"booking_date": "2026-02-23"},
		OptionsData:       desks(5),
	}

	params, ok := Resolve("3", pending, Shape{Field: "desk_id"}, "desk_code", "")
	require.True(t, ok)
	assert.Equal(t, "00000000-0000-4000-8000-000000000003", params["desk_id"])
	assert.Equal(t, "2026-02-23", params["booking_date"])
}

func TestResolveNestedDoesNotMerge(t *testing.T) {
	pending := &models.PendingAction{
		TargetOperationID: "food_order",
		CollectedParams:   map[string]any{"delivery_location": "desk", "quantity": 2},
		OptionsData: []map[string]any{
			{"id": "11111111-1111-4111-8111-111111111111", "name": "Tea"},
		},
	}
	shape := Shape{Field: "food_item_id", Nested: true, ArrayField: "items", QuantityField: "quantity"}

	params, ok := Resolve("tea", pending, shape, "name", "")
	require.True(t, ok)
	assert.NotContains(t, params, "delivery_location")
	items, ok := params["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, map[string]any{"food_item_id": "11111111-1111-4111-8111-111111111111", "quantity": 2}, items[0])
}

func TestResolveWithoutOptions(t *testing.T) {
	_, ok := Resolve("1", &models.PendingAction{}, Shape{Field: "x"}, "", "")
	assert.False(t, ok)
	_, ok = Resolve("1", nil, Shape{Field: "x"}, "", "")
	assert.False(t, ok)
}

func TestCandidateID(t *testing.T) {
	assert.Equal(t, "7", CandidateID(map[string]any{"id": float64(7)}, ""))
	assert.Equal(t, "x", CandidateID(map[string]any{"b_id": "y", "a_id": "x"}, ""))
	assert.Equal(t, "p", CandidateID(map[string]any{"id": "q", "leave_type_id": "p"}, "leave_type_id"))
}
