// Package resolver maps a user's reply to an option that a previous lookup
// returned. It is the only place an identifier the user never typed may be
// written into outgoing parameters, and it only ever copies identifiers out
// of lookup records.
package resolver

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/avvvet/officebuddy/internal/catalog"
	"github.com/avvvet/officebuddy/internal/models"
)

// MaxOptions bounds how many options are shown and selectable
const MaxOptions = 15

// nameFields are checked in order for a candidate's display name
var nameFields = []string{"display_name", "name", "label", "title", "item_name", "room_label", "desk_code", "leave_type", "code"}

// idFields are checked in order for a candidate's identifier
var idFields = []string{"id", "uuid"}

// Shape says how a resolved identifier is written into params
type Shape struct {
	Field         string
	Nested        bool
	ArrayField    string
	QuantityField string
}

// ShapeFor derives the shape from an operation's selection entry. The
// fallback is a flat write into the field the dependent lookup supplies.
func ShapeFor(op *catalog.Operation, dependentID string) Shape {
	if s := op.Selection; s != nil {
		shape := Shape{Field: s.Field}
		if s.Shape == catalog.ShapeNested {
			shape.Nested = true
			shape.ArrayField = s.ArrayField
			shape.QuantityField = s.QuantityField
			if shape.QuantityField == "" {
				shape.QuantityField = "quantity"
			}
		}
		return shape
	}
	if field, ok := op.FieldForDependent(dependentID); ok {
		return Shape{Field: field}
	}
	return Shape{Field: "id"}
}

// CandidateName returns the first non-empty display field of an option
func CandidateName(option map[string]any, preferred string) string {
	if preferred != "" {
		if s := stringValue(option[preferred]); s != "" {
			return s
		}
	}
	for _, f := range nameFields {
		if s := stringValue(option[f]); s != "" {
			return s
		}
	}
	return ""
}

// CandidateID returns an option's identifier. preferred, then id/uuid, then
// the first field ending in _id.
func CandidateID(option map[string]any, preferred string) string {
	if preferred != "" {
		if s := stringValue(option[preferred]); s != "" {
			return s
		}
	}
	for _, f := range idFields {
		if s := stringValue(option[f]); s != "" {
			return s
		}
	}
	keys := make([]string, 0, len(option))
	for k := range option {
		if strings.HasSuffix(k, "_id") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s := stringValue(option[k]); s != "" {
			return s
		}
	}
	return ""
}

// Select picks an option index for reply. A bare integer selects by
// position (1-based, within the first MaxOptions); anything else matches
// names by case-insensitive substring in either direction, first match in
// list order.
func Select(reply string, options []map[string]any, nameField string) (int, bool) {
	text := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(reply), ".!"))
	if text == "" || len(options) == 0 {
		return -1, false
	}

	limit := len(options)
	if limit > MaxOptions {
		limit = MaxOptions
	}

	if n, err := strconv.Atoi(strings.TrimPrefix(text, "#")); err == nil {
		if n >= 1 && n <= limit {
			return n - 1, true
		}
		return -1, false
	}

	lower := strings.ToLower(text)
	for _, article := range []string{"the ", "a ", "an "} {
		lower = strings.TrimPrefix(lower, article)
	}
	for i, option := range options {
		name := strings.ToLower(CandidateName(option, nameField))
		if name == "" {
			continue
		}
		if strings.Contains(name, lower) || strings.Contains(lower, name) {
			return i, true
		}
	}
	return -1, false
}

// Resolve turns a reply into parameters for the pending target operation.
// It returns false when the reply does not pick an option, in which case
// the caller passes the action through unresolved.
func Resolve(reply string, pending *models.PendingAction, shape Shape, nameField, idField string) (map[string]any, bool) {
	if !pending.HasOptions() {
		return nil, false
	}
	idx, ok := Select(reply, pending.OptionsData, nameField)
	if !ok {
		return nil, false
	}
	id := CandidateID(pending.OptionsData[idx], idField)
	if id == "" {
		return nil, false
	}
	return Apply(shape, id, pending.CollectedParams), true
}

// Apply writes id into a parameter map of the given shape. Flat shapes
// keep collected parameters; nested shapes produce a self-contained line.
func Apply(shape Shape, id string, collected map[string]any) map[string]any {
	if shape.Nested {
		qty := 1
		if q, ok := collected[shape.QuantityField]; ok {
			if n, err := strconv.Atoi(fmt.Sprint(q)); err == nil && n > 0 {
				qty = n
			}
		}
		return map[string]any{
			shape.ArrayField: []any{
				map[string]any{shape.Field: id, shape.QuantityField: qty},
			},
		}
	}

	params := make(map[string]any, len(collected)+1)
	for k, v := range collected {
		params[k] = v
	}
	params[shape.Field] = id
	return params
}

// KnownIDs lists every identifier present in the options
func KnownIDs(options []map[string]any, idField string) map[string]bool {
	ids := make(map[string]bool, len(options))
	for _, o := range options {
		if id := CandidateID(o, idField); id != "" {
			ids[id] = true
		}
	}
	return ids
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}
