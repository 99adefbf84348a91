package compressor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/avvvet/officebuddy/internal/models"
)

// Per-category caps keep the prompt bounded
const (
	MaxIdentifiers   = 10
	MaxDates         = 5
	MaxResourceCodes = 10
	MaxKeyValues     = 10
)

var (
	uuidRe = regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`)
	dateRe = regexp.MustCompile(`\b\d{4}-(?:0[1-9]|1[0-2])-(?:0[1-9]|[12]\d|3[01])\b`)
	codeRe = regexp.MustCompile(`\b[A-Z]{2,6}-\d{1,6}[A-Z]?\b`)
	kvRe   = regexp.MustCompile(`\b(desk_id|room_id|food_item_id|leave_type_id|leave_id|booking_id|ticket_id|asset_id|booking_date|start_date|end_date|start_time|end_time|quantity|category)"?\s*[:=]\s*"?([A-Za-z0-9_:.\-]+)`)
)

// ExtractedContext holds the tokens that must survive compression
type ExtractedContext struct {
	Identifiers   []string          `json:"identifiers"`
	Dates         []string          `json:"dates"`
	ResourceCodes []string          `json:"resource_codes"`
	KeyValues     map[string]string `json:"key_values"`

	keyOrder []string
}

// IsEmpty reports whether nothing critical was found
func (e ExtractedContext) IsEmpty() bool {
	return len(e.Identifiers) == 0 && len(e.Dates) == 0 && len(e.ResourceCodes) == 0 && len(e.KeyValues) == 0
}

// References lists identifiers, dates and codes in that order
func (e ExtractedContext) References() []string {
	refs := make([]string, 0, len(e.Identifiers)+len(e.Dates)+len(e.ResourceCodes))
	refs = append(refs, e.Identifiers...)
	refs = append(refs, e.Dates...)
	refs = append(refs, e.ResourceCodes...)
	return refs
}

// Bullets renders the extracted data without narrative
func (e ExtractedContext) Bullets() string {
	var b strings.Builder
	if len(e.Identifiers) > 0 {
		b.WriteString("- Identifiers: " + strings.Join(e.Identifiers, ", ") + "\n")
	}
	if len(e.Dates) > 0 {
		b.WriteString("- Dates: " + strings.Join(e.Dates, ", ") + "\n")
	}
	if len(e.ResourceCodes) > 0 {
		b.WriteString("- Codes: " + strings.Join(e.ResourceCodes, ", ") + "\n")
	}
	for _, k := range e.keyOrder {
		b.WriteString(fmt.Sprintf("- %s: %s\n", k, e.KeyValues[k]))
	}
	return strings.TrimRight(b.String(), "\n")
}

// ExtractCritical pattern-matches identifiers, dates, resource codes and
// known parameter values out of messages. Each category is deduplicated and
// capped to its most recent entries, listed in conversation order.
func ExtractCritical(messages []models.Message) ExtractedContext {
	e := ExtractedContext{KeyValues: map[string]string{}}
	// newest first, so the caps keep the latest references
	for i := len(messages) - 1; i >= 0; i-- {
		text := messages[i].Content
		ids := uuidRe.FindAllString(text, -1)
		for j := len(ids) - 1; j >= 0; j-- {
			e.Identifiers = appendCapped(e.Identifiers, ids[j], MaxIdentifiers)
		}
		dates := dateRe.FindAllString(text, -1)
		for j := len(dates) - 1; j >= 0; j-- {
			e.Dates = appendCapped(e.Dates, dates[j], MaxDates)
		}
		// codes inside UUIDs are not codes
		codes := codeRe.FindAllString(uuidRe.ReplaceAllString(text, " "), -1)
		for j := len(codes) - 1; j >= 0; j-- {
			e.ResourceCodes = appendCapped(e.ResourceCodes, codes[j], MaxResourceCodes)
		}
		kvs := kvRe.FindAllStringSubmatch(text, -1)
		for j := len(kvs) - 1; j >= 0; j-- {
			key, value := kvs[j][1], kvs[j][2]
			if _, seen := e.KeyValues[key]; seen || len(e.keyOrder) >= MaxKeyValues {
				continue
			}
			e.keyOrder = append(e.keyOrder, key)
			e.KeyValues[key] = value
		}
	}
	reverse(e.Identifiers)
	reverse(e.Dates)
	reverse(e.ResourceCodes)
	reverse(e.keyOrder)
	return e
}

func appendCapped(list []string, v string, max int) []string {
	if len(list) >= max {
		return list
	}
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func reverse(list []string) {
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
}
