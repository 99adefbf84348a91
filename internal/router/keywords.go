package router

import (
	"regexp"
	"sort"
	"strings"

	"github.com/avvvet/officebuddy/internal/models"
	"github.com/avvvet/officebuddy/internal/prompts"
)

// keywordTable is the fixed per-specialist vocabulary used when the model's
// decision cannot be used. Keywords match whole words, plurals included.
var keywordTable = map[string][]string{
	"attendance": {"check in", "check-in", "checkin", "check out", "check-out", "checkout", "clock in", "clock out", "punch in", "punch out", "attendance"},
	"leave":      {"leave", "vacation", "time off", "day off", "days off", "sick", "holiday", "pto"},
	"booking":    {"desk", "meeting room", "conference room", "room", "booking", "reserve", "seat"},
	"cafeteria":  {"menu", "food", "lunch", "breakfast", "coffee", "tea", "snack", "cafeteria", "canteen", "order"},
	"it":         {"laptop", "computer", "ticket", "vpn", "password", "printer", "wifi", "wi-fi", "monitor", "keyboard", "software", "it support", "asset"},
}

var (
	greetings = []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening", "howdy", "greetings"}
	farewells = []string{"bye", "goodbye", "see you", "good night", "that's all", "that is all", "thanks, bye", "talk later"}

	keywordConfidence  = 0.8
	greetingConfidence = 0.9
	fallbackConfidence = 0.3

	segmentSplitRe = regexp.MustCompile(`(?i)\s+(?:and then|and also|and|also|then)\s+|;|\.\s+`)
)

var keywordRes = compileKeywords()

type keywordPattern struct {
	specialist string
	re         *regexp.Regexp
}

func compileKeywords() []keywordPattern {
	names := make([]string, 0, len(keywordTable))
	for name := range keywordTable {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []keywordPattern
	for _, name := range names {
		for _, kw := range keywordTable[name] {
			out = append(out, keywordPattern{specialist: name, re: phraseRe(kw, true)})
		}
	}
	return out
}

// phraseRe matches phrase as whole words, optionally with a plural suffix
func phraseRe(phrase string, plural bool) *regexp.Regexp {
	expr := `(?i)\b` + regexp.QuoteMeta(phrase)
	if plural {
		expr += `(?:s|es)?`
	}
	return regexp.MustCompile(expr + `\b`)
}

var (
	greetingRes = compilePhrases(greetings)
	farewellRes = compilePhrases(farewells)
)

func compilePhrases(phrases []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(phrases))
	for _, p := range phrases {
		out = append(out, phraseRe(p, false))
	}
	return out
}

// KeywordRoute is the deterministic routing path. Specialists are listed
// in the order the user mentioned them, each with the clause it matched in.
func (r *Router) KeywordRoute(utterance string) *models.RoutingResult {
	first := map[string]int{}
	for _, kp := range keywordRes {
		if !r.valid[kp.specialist] {
			continue
		}
		loc := kp.re.FindStringIndex(utterance)
		if loc == nil {
			continue
		}
		if pos, seen := first[kp.specialist]; !seen || loc[0] < pos {
			first[kp.specialist] = loc[0]
		}
	}

	if len(first) == 0 {
		return r.phraseRoute(utterance)
	}

	names := make([]string, 0, len(first))
	for name := range first {
		names = append(names, name)
	}
	sort.SliceStable(names, func(i, j int) bool {
		if first[names[i]] != first[names[j]] {
			return first[names[i]] < first[names[j]]
		}
		return names[i] < names[j]
	})

	intents := make([]models.SpecialistIntent, 0, len(names))
	for _, name := range names {
		intent := utterance
		if len(names) > 1 {
			intent = clauseAt(utterance, first[name])
		}
		intents = append(intents, models.SpecialistIntent{Specialist: name, Intent: intent, Confidence: keywordConfidence})
	}

	return r.applyThreshold(&models.RoutingResult{
		SelectedSpecialist:  names[0],
		Confidence:          keywordConfidence,
		IsMultiIntent:       len(names) > 1,
		SelectedSpecialists: intents,
		Source:              models.RouteSourceKeyword,
	})
}

// phraseRoute handles utterances that name no specialist
func (r *Router) phraseRoute(utterance string) *models.RoutingResult {
	result := &models.RoutingResult{
		SelectedSpecialist: models.SpecialistGeneral,
		Source:             models.RouteSourceKeyword,
	}
	switch {
	case matchesAny(farewellRes, utterance):
		result.IsFarewell = true
		result.Confidence = greetingConfidence
	case matchesAny(greetingRes, utterance):
		result.IsGreeting = true
		result.Confidence = greetingConfidence
	default:
		result.Confidence = fallbackConfidence
		result.NeedsClarification = true
		result.ClarificationMessage = prompts.ClarificationMessage
	}
	result.SelectedSpecialists = []models.SpecialistIntent{{
		Specialist: models.SpecialistGeneral,
		Intent:     utterance,
		Confidence: result.Confidence,
	}}
	return result
}

func matchesAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// clauseAt returns the clause of s that contains byte offset pos
func clauseAt(s string, pos int) string {
	start := 0
	for _, loc := range segmentSplitRe.FindAllStringIndex(s, -1) {
		if loc[0] > pos {
			return strings.TrimSpace(s[start:loc[0]])
		}
		start = loc[1]
	}
	return strings.TrimSpace(s[start:])
}
