package specialist

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/avvvet/officebuddy/internal/catalog"
)

const dateLayout = "2006-01-02"

var (
	durationRe = regexp.MustCompile(`(?i)\b(\d{1,3})[\s-]*(?:working\s+|calendar\s+)?days?\b`)
	isoDateRe  = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
)

// durationKeys are param names a model may use for a day count
var durationKeys = []string{"days", "number_of_days", "num_days", "duration_days", "duration"}

// EndDate returns the last day of a leave that starts on start and lasts
// days calendar days, counting the start date as day one
func EndDate(start string, days int) (string, error) {
	if days < 1 {
		return "", fmt.Errorf("leave duration must be at least one day, got %d", days)
	}
	t, err := parseDate(start)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, days-1).Format(dateLayout), nil
}

// fillLeaveDates completes start_date/end_date from a stated duration. A
// duration in the message always wins over a model-computed end date.
func fillLeaveDates(op *catalog.Operation, params map[string]any, utterance string) {
	if !requires(op, "start_date") || !requires(op, "end_date") {
		return
	}

	days := 0
	for _, k := range durationKeys {
		if v, ok := params[k]; ok {
			if n, err := strconv.Atoi(fmt.Sprint(v)); err == nil {
				days = n
			}
			if !accepts(op, k) {
				delete(params, k)
			}
		}
	}
	if m := durationRe.FindStringSubmatch(utterance); m != nil {
		days, _ = strconv.Atoi(m[1])
	}

	start, _ := params["start_date"].(string)
	if start == "" {
		if d := isoDateRe.FindString(utterance); d != "" {
			start = d
			params["start_date"] = d
		}
	}
	if start == "" || days < 1 {
		return
	}
	if end, err := EndDate(start, days); err == nil {
		params["end_date"] = end
	}
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

func requires(op *catalog.Operation, field string) bool {
	for _, f := range op.RequiredFields {
		if f == field {
			return true
		}
	}
	return false
}

func accepts(op *catalog.Operation, field string) bool {
	if requires(op, field) {
		return true
	}
	for _, f := range op.OptionalFields {
		if f == field {
			return true
		}
	}
	return false
}
