package prompts

import (
	"testing"
	"time"

	"github.com/avvvet/officebuddy/internal/catalog"
	"github.com/avvvet/officebuddy/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRouterPrompt(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	prompt := BuildRouterPrompt(cat, "")
	for _, d := range cat.Domains() {
		assert.Contains(t, prompt, "- "+d.Name+": ")
	}
	assert.Contains(t, prompt, "- general:")
	assert.Contains(t, prompt, "talking to: nobody yet")

	assert.Contains(t, BuildRouterPrompt(cat, "leave"), "talking to: leave")
}

func TestBuildSpecialistPrompt(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	domain, ok := cat.GetDomain("booking")
	require.True(t, ok)

	prompt := BuildSpecialistPrompt(SpecialistInput{
		Name:        "booking",
		Description: "You book desks and rooms.",
		User:        models.UserProfile{UserID: "u1", Name: "Ana"},
		Pending: &models.PendingAction{
			TargetOperationID:    "desk_book",
			DependentOperationID: "desk_list",
			CollectedParams:      map[string]any{"booking_date": "2026-10-16"},
			MissingFields:        []string{"desk_id"},
		},
		Options: []string{"1. DSK-1", "2. DSK-2"},
		Domain:  domain,
		Now:     time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
	})

	assert.Contains(t, prompt, "You are the booking specialist for OfficeBuddy")
	assert.Contains(t, prompt, "Today is 2026-10-15 (Thursday)")
	assert.Contains(t, prompt, "desk_id (from desk_list)")
	assert.Contains(t, prompt, "- still missing: desk_id")
	assert.Contains(t, prompt, "  2. DSK-2\n")
	assert.Contains(t, prompt, "EARLIER CONVERSATION SUMMARY:\nNone.")
}

func TestBuildSpecialistPromptWithoutPending(t *testing.T) {
	prompt := BuildSpecialistPrompt(SpecialistInput{Name: "it", Summary: "User reported a broken laptop."})
	assert.NotContains(t, prompt, "IN-PROGRESS REQUEST")
	assert.Contains(t, prompt, "User reported a broken laptop.")
	assert.Contains(t, prompt, "AVAILABLE OPERATIONS (use these exact ids and field names):\nNone.")
}

func TestConcatReplies(t *testing.T) {
	out := ConcatReplies([]SpecialistReply{
		{Specialist: "attendance", Message: "Checked in at 09:02."},
		{Specialist: "booking", Message: "Please choose one:\n1. DSK-1"},
	})
	assert.Equal(t, "**Attendance**\nChecked in at 09:02.\n\n**Booking**\nPlease choose one:\n1. DSK-1", out)
}

func TestBuildSummaryPrompt(t *testing.T) {
	assert.Contains(t, BuildSummaryPrompt(nil), "verbatim: none")
	assert.Contains(t, BuildSummaryPrompt([]string{"TKT-101", "ID: 2231"}), "verbatim: TKT-101, ID: 2231")
}

func TestFormatHistory(t *testing.T) {
	assert.Equal(t, "No previous conversation.", FormatHistory(nil))
	out := FormatHistory([]models.Message{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello"},
	})
	assert.Equal(t, "User: hi\nAssistant: hello\n", out)
}

func TestBuildHumanizePromptTruncates(t *testing.T) {
	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'x'
	}
	prompt := BuildHumanizePrompt("book it", "Book a desk", string(long))
	assert.Contains(t, prompt, "...")
	assert.Less(t, len(prompt), 4600)
}
