// ABOUTME: Data models for the forward-to-calendar flow
// ABOUTME: Defines the per-user Draft and the chosen artifact intent
package models

import (
	"strings"
	"time"
)

type Intent string

const (
	IntentReminder Intent = "reminder"
	IntentMeeting  Intent = "meeting"
)

const (
	previewLimit      = 200
	meetingTitleLimit = 60
)

// Draft is the per-user working record for an in-progress flow. At most
// one exists per user; a new forwarded message replaces it entirely and
// no draft survives a process restart.
type Draft struct {
	Text             string
	SourceChatTitle  string
	SourceSenderName string
	ReceivedAt       time.Time

	// Intent records which flow the user picked, so a time selection
	// knows which field to set. Both time fields coexist because a user
	// can start one flow and then the other.
	Intent       Intent
	ReminderTime *time.Time
	MeetingTime  *time.Time
}

// Preview returns the captured text truncated for display. The full text
// is kept on the draft.
func (d *Draft) Preview() string {
	return truncate(d.Text, previewLimit)
}

// MeetingTitle derives an event title from the captured text: trimmed and
// truncated, with a fixed fallback when the trimmed text is empty.
func (d *Draft) MeetingTitle() string {
	title := strings.TrimSpace(d.Text)
	if title == "" {
		return "Meeting"
	}
	return truncate(title, meetingTitleLimit)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
