package prompts

import (
	"fmt"
	"strings"
)

const HumanizePrompt = `You turn raw API results into a short reply for an employee using OfficeBuddy.
The user asked: %q
Operation: %s
Result (JSON): %s

Reply in one to three friendly sentences. Mention concrete details (dates, codes, names) from the result. Do not mention JSON, APIs or ids that look like UUIDs.`

func BuildHumanizePrompt(utterance, operation, result string) string {
	return fmt.Sprintf(HumanizePrompt, utterance, operation, truncate(result, 4000))
}

const SummaryPrompt = `Summarize the earlier part of this conversation between an employee and OfficeBuddy in at most 200 words.
Keep what was requested, what was done and what is still open.
You MUST repeat every one of these references verbatim: %s`

func BuildSummaryPrompt(references []string) string {
	refs := "none"
	if len(references) > 0 {
		refs = strings.Join(references, ", ")
	}
	return fmt.Sprintf(SummaryPrompt, refs)
}

const CombinePrompt = `You combine answers from several OfficeBuddy specialists into one reply to the user's message %q.

%s
Write one natural reply covering every part. If any part contains a numbered list of options, reproduce that list in full with its numbers exactly as given; the user will pick from it in the next message.`

// SpecialistReply is one specialist's contribution to a multi-intent turn
type SpecialistReply struct {
	Specialist string
	Message    string
}

func BuildCombinePrompt(utterance string, replies []SpecialistReply) string {
	var b strings.Builder
	for _, r := range replies {
		b.WriteString(fmt.Sprintf("[%s]\n%s\n\n", r.Specialist, r.Message))
	}
	return fmt.Sprintf(CombinePrompt, utterance, b.String())
}

// ConcatReplies is the floor behaviour when combining fails
func ConcatReplies(replies []SpecialistReply) string {
	parts := make([]string, 0, len(replies))
	for _, r := range replies {
		parts = append(parts, fmt.Sprintf("**%s**\n%s", titleCase(r.Specialist), r.Message))
	}
	return strings.Join(parts, "\n\n")
}

const GeneralPrompt = `You are OfficeBuddy, a friendly workplace assistant for %s.
You can help with attendance (check in/out), leave, desk and meeting room bookings, cafeteria orders and IT tickets.
Answer the message briefly and warmly. You cannot perform actions in this reply; if the user wants something done, tell them what to ask for.`

func BuildGeneralPrompt(name string) string {
	if name == "" {
		name = "an employee"
	}
	return fmt.Sprintf(GeneralPrompt, name)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
