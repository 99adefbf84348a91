package specialist

import (
	"fmt"
	"strings"

	"github.com/avvvet/officebuddy/internal/catalog"
	"github.com/avvvet/officebuddy/internal/resolver"
)

// RenderOptions numbers up to resolver.MaxOptions records for display.
// Numbers line up with what the resolver accepts as a positional reply.
func RenderOptions(op *catalog.Operation, records []map[string]any) []string {
	n := len(records)
	if n > resolver.MaxOptions {
		n = resolver.MaxOptions
	}
	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, FormatOption(op, records[i])))
	}
	return lines
}

// FormatOption renders one record: the operation's display format when
// every placeholder is present, otherwise a shape-based heuristic
func FormatOption(op *catalog.Operation, record map[string]any) string {
	nameField := ""
	if op != nil {
		nameField = op.NameField
		if op.DisplayFormat != "" {
			if s, ok := catalog.RenderTemplate(op.DisplayFormat, record); ok {
				return s
			}
		}
	}

	name := resolver.CandidateName(record, nameField)
	switch {
	case has(record, "room_label"):
		label := fmt.Sprint(record["room_label"])
		if name == "" || name == label {
			name = field(record, "desk_code", "name")
		}
		s := strings.TrimSpace(name + " - " + label)
		if has(record, "floor") {
			s += fmt.Sprintf(" (floor %v)", record["floor"])
		}
		return strings.TrimPrefix(s, "- ")
	case has(record, "price"):
		return fmt.Sprintf("%s - %v", orUnnamed(name), record["price"])
	case has(record, "booking_date"):
		s := fmt.Sprintf("%s on %v", orUnnamed(name), record["booking_date"])
		if has(record, "start_time") && has(record, "end_time") {
			s += fmt.Sprintf(" %v-%v", record["start_time"], record["end_time"])
		}
		return s
	}
	if name != "" {
		return name
	}
	if id := resolver.CandidateID(record, ""); id != "" {
		return id
	}
	return "(unnamed)"
}

func has(record map[string]any, key string) bool {
	v, ok := record[key]
	return ok && v != nil && fmt.Sprint(v) != ""
}

func field(record map[string]any, keys ...string) string {
	for _, k := range keys {
		if has(record, k) {
			return fmt.Sprint(record[k])
		}
	}
	return ""
}

func orUnnamed(s string) string {
	if s == "" {
		return "(unnamed)"
	}
	return s
}
