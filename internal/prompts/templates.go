package prompts

import (
	"fmt"
	"strings"

	"github.com/avvvet/officebuddy/internal/models"
)

const FallbackMessage = "I didn't understand your request clearly. Could you please rephrase what you'd like me to help you with?"

const ClarificationMessage = "I can help with attendance, leave, desk and room bookings, cafeteria orders and IT support. What would you like to do?"

const RetryMessage = "I'm getting a lot of requests right now. Please try again in a moment."

const WaitForOptionsMessage = "Please wait a moment while I fetch the real options for you."

const LookupFailedMessage = "I couldn't fetch the options right now. Please try again in a moment."

const OperationMissingMessage = "Sorry, I can't do that right now. Something is misconfigured on my side and the team has been notified."

// FormatHistory renders messages as "Role: content" lines
func FormatHistory(messages []models.Message) string {
	if len(messages) == 0 {
		return "No previous conversation."
	}
	var b strings.Builder
	for _, msg := range messages {
		role := msg.Role
		if role != "" {
			role = strings.ToUpper(role[:1]) + role[1:]
		}
		b.WriteString(fmt.Sprintf("%s: %s\n", role, msg.Content))
	}
	return b.String()
}

// FormatUser renders the identity snapshot
func FormatUser(user models.UserProfile) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("- Name: %s\n", orDash(user.Name)))
	b.WriteString(fmt.Sprintf("- User ID: %s\n", orDash(user.UserID)))
	if user.Email != "" {
		b.WriteString(fmt.Sprintf("- Email: %s\n", user.Email))
	}
	if user.Department != "" {
		b.WriteString(fmt.Sprintf("- Department: %s\n", user.Department))
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
