package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	names := []string{}
	for _, d := range c.Domains() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"attendance", "leave", "booking", "cafeteria", "it"}, names)

	t.Run("desk booking depends on desk list", func(t *testing.T) {
		op, ok := c.GetOperation("desk_book")
		require.True(t, ok)
		assert.Equal(t, "booking", op.Domain)
		assert.Equal(t, []string{"desk_list"}, op.DependentOperationIDs())
		field, ok := op.FieldForDependent("desk_list")
		require.True(t, ok)
		assert.Equal(t, "desk_id", field)
		assert.False(t, op.IsRead())
	})

	t.Run("nested selection resolves array field", func(t *testing.T) {
		op, ok := c.GetOperation("food_order")
		require.True(t, ok)
		dep, ok := op.DependentForField("items")
		require.True(t, ok)
		assert.Equal(t, "menu_list", dep)
	})

	t.Run("path params", func(t *testing.T) {
		op, ok := c.GetOperation("room_book")
		require.True(t, ok)
		assert.Equal(t, []string{"room_id"}, op.PathParams())
	})

	t.Run("unknown lookups", func(t *testing.T) {
		_, ok := c.GetOperation("nope")
		assert.False(t, ok)
		_, ok = c.GetDomain("nope")
		assert.False(t, ok)
	})
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing endpoint", "domains:\n  - name: a\n    operations:\n      - id: x\n        method: GET\n"},
		{"duplicate op", "domains:\n  - name: a\n    operations:\n      - {id: x, method: GET, endpoint: /x}\n      - {id: x, method: GET, endpoint: /y}\n"},
		{"unknown dependent", "domains:\n  - name: a\n    operations:\n      - id: x\n        method: POST\n        endpoint: /x\n        dependent_fields: {y_id: missing}\n"},
		{"nested without array", "domains:\n  - name: a\n    operations:\n      - id: x\n        method: POST\n        endpoint: /x\n        selection: {field: y, shape: nested}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestRenderTemplate(t *testing.T) {
	out, ok := RenderTemplate("{name} (seats {capacity})", map[string]any{"name": "Everest", "capacity": 8})
	assert.True(t, ok)
	assert.Equal(t, "Everest (seats 8)", out)

	_, ok = RenderTemplate("{name} {missing}", map[string]any{"name": "x"})
	assert.False(t, ok)
}
