// ABOUTME: Tests for the conversation state machine
// ABOUTME: Drives the controller with fake transport, credentials, and calendar
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/goodmemory/goodmemory-bot/gcal"
	"github.com/goodmemory/goodmemory-bot/store"
)

type fakeReplier struct {
	replies  []string
	edits    []string
	rows     [][][]Button
	acks     int
	editFail bool
}

func (f *fakeReplier) Reply(text string, rows ...[]Button) error {
	f.replies = append(f.replies, text)
	f.rows = append(f.rows, rows)
	return nil
}

func (f *fakeReplier) Edit(text string, rows ...[]Button) error {
	if f.editFail {
		return errors.New("message can't be edited")
	}
	f.edits = append(f.edits, text)
	f.rows = append(f.rows, rows)
	return nil
}

func (f *fakeReplier) AnswerCallback() error {
	f.acks++
	return nil
}

func (f *fakeReplier) last() string {
	if n := len(f.edits); n > 0 {
		return f.edits[n-1]
	}
	if n := len(f.replies); n > 0 {
		return f.replies[n-1]
	}
	return ""
}

type fakeCreds map[int64]*oauth2.Token

func (f fakeCreds) Get(userID int64) (*oauth2.Token, bool) {
	tok, ok := f[userID]
	return tok, ok
}

type fakeCalendar struct {
	inputs []gcal.EventInput
	link   string
	err    error
}

func (f *fakeCalendar) CreateEvent(_ context.Context, _ *oauth2.Token, in gcal.EventInput) (string, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return "", f.err
	}
	return f.link, nil
}

const testUser int64 = 100

func newTestController(creds fakeCreds, cal *fakeCalendar) *Controller {
	c := NewController(store.NewDraftStore(), creds, cal,
		func(userID int64) string { return fmt.Sprintf("https://auth.example/%d", userID) })
	c.now = func() time.Time {
		return time.Date(2026, time.March, 10, 10, 0, 0, 0, time.Local)
	}
	return c
}

func forward(text string) Event {
	return Event{UserID: testUser, Kind: KindForward, Text: text}
}

func press(action string) Event {
	return Event{UserID: testUser, Kind: KindButton, Action: action}
}

func (c *Controller) drive(t *testing.T, r *fakeReplier, events ...Event) {
	t.Helper()
	for _, ev := range events {
		c.HandleEvent(context.Background(), ev, r)
	}
}

func TestForwardCreatesDraftAndPromptsIntent(t *testing.T) {
	c := newTestController(fakeCreds{}, &fakeCalendar{})
	r := &fakeReplier{}

	c.drive(t, r, forward("call the plumber"))

	if d := c.drafts.Get(testUser); d == nil || d.Text != "call the plumber" {
		t.Fatalf("expected stored draft, got %+v", d)
	}
	if len(r.replies) != 1 || !strings.Contains(r.replies[0], "What should I create?") {
		t.Errorf("expected intent prompt, got %v", r.replies)
	}
}

func TestForwardWithoutTextGetsPlaceholder(t *testing.T) {
	c := newTestController(fakeCreds{}, &fakeCalendar{})
	r := &fakeReplier{}

	c.drive(t, r, forward(""))

	if d := c.drafts.Get(testUser); d.Text != "[message without text]" {
		t.Errorf("expected placeholder text, got %q", d.Text)
	}
}

func TestPlainMessageNeverTouchesDrafts(t *testing.T) {
	c := newTestController(fakeCreds{}, &fakeCalendar{})
	r := &fakeReplier{}

	c.drive(t, r, Event{UserID: testUser, Kind: KindMessage, Text: "hello"})

	if d := c.drafts.Get(testUser); d != nil {
		t.Errorf("plain message must not create a draft, got %+v", d)
	}
	if len(r.replies) != 1 || !strings.Contains(r.replies[0], "forward me a message") {
		t.Errorf("expected forward instruction, got %v", r.replies)
	}
}

func TestSecondForwardReplacesDraftEntirely(t *testing.T) {
	c := newTestController(fakeCreds{}, &fakeCalendar{})
	r := &fakeReplier{}

	c.drive(t, r,
		forward("first"),
		press(actionCreateReminder),
		press(actionTimeTonight),
		forward("second"),
	)

	d := c.drafts.Get(testUser)
	if d.Text != "second" {
		t.Errorf("expected replacement draft, got %q", d.Text)
	}
	if d.ReminderTime != nil || d.Intent != "" {
		t.Error("prior selection must be unrecoverable after a new forward")
	}
}

func TestButtonWithoutDraftRecovers(t *testing.T) {
	c := newTestController(fakeCreds{}, &fakeCalendar{})
	r := &fakeReplier{}

	c.drive(t, r, press(actionConfirmReminder))

	if r.acks != 1 {
		t.Errorf("button press must be acked, got %d acks", r.acks)
	}
	if len(r.replies) != 1 || !strings.Contains(r.replies[0], "Forward it to me again") {
		t.Errorf("expected recovery message, got %v", r.replies)
	}
}

func TestReminderFlowEndToEnd(t *testing.T) {
	cal := &fakeCalendar{link: "https://calendar.example/event/1"}
	c := newTestController(fakeCreds{testUser: {AccessToken: "tok"}}, cal)
	r := &fakeReplier{}

	c.drive(t, r,
		forward("water the plants"),
		press(actionCreateReminder),
		press(actionTimeTonight),
		press(actionConfirmReminder),
	)

	if len(cal.inputs) != 1 {
		t.Fatalf("expected exactly one calendar write, got %d", len(cal.inputs))
	}
	in := cal.inputs[0]
	if in.Summary != "Reminder" {
		t.Errorf("expected fixed reminder title, got %q", in.Summary)
	}
	if in.Description != "water the plants" {
		t.Errorf("expected full text as description, got %q", in.Description)
	}
	wantStart := time.Date(2026, time.March, 10, 19, 0, 0, 0, time.Local)
	if !in.Start.Equal(wantStart) {
		t.Errorf("expected tonight 19:00 start, got %v", in.Start)
	}
	if got := in.End.Sub(in.Start); got != 30*time.Minute {
		t.Errorf("expected 30m window, got %v", got)
	}

	if !strings.Contains(r.last(), "https://calendar.example/event/1") {
		t.Errorf("expected event link in response, got %q", r.last())
	}
	if d := c.drafts.Get(testUser); d.ReminderTime != nil {
		t.Error("reminder time must be cleared after a successful write")
	}
}

func TestMeetingFlowWindowAndTitle(t *testing.T) {
	cal := &fakeCalendar{link: "https://calendar.example/event/2"}
	c := newTestController(fakeCreds{testUser: {AccessToken: "tok"}}, cal)
	r := &fakeReplier{}

	longText := "  " + strings.Repeat("planning session ", 10)
	c.drive(t, r,
		forward(longText),
		press(actionCreateMeeting),
		press(actionTimeTomorrow),
		press(actionConfirmMeeting),
	)

	if len(cal.inputs) != 1 {
		t.Fatalf("expected one calendar write, got %d", len(cal.inputs))
	}
	in := cal.inputs[0]
	if len([]rune(in.Summary)) != 60 {
		t.Errorf("expected 60-char meeting title, got %d chars", len([]rune(in.Summary)))
	}
	if in.Description != longText {
		t.Errorf("description must hold the full captured text, got %q", in.Description)
	}
	wantStart := time.Date(2026, time.March, 11, 9, 0, 0, 0, time.Local)
	if !in.Start.Equal(wantStart) {
		t.Errorf("expected tomorrow 09:00 start, got %v", in.Start)
	}
	if got := in.End.Sub(in.Start); got != 60*time.Minute {
		t.Errorf("expected 60m window, got %v", got)
	}
}

func TestConfirmWithoutCredentialsWritesNothing(t *testing.T) {
	cal := &fakeCalendar{}
	c := newTestController(fakeCreds{}, cal)
	r := &fakeReplier{}

	c.drive(t, r,
		forward("standup"),
		press(actionCreateReminder),
		press(actionTimePlus1h),
		press(actionConfirmReminder),
	)

	if len(cal.inputs) != 0 {
		t.Fatalf("expected no calendar write, got %d", len(cal.inputs))
	}
	if !strings.Contains(r.last(), "/connect") {
		t.Errorf("expected connect instruction, got %q", r.last())
	}
	if d := c.drafts.Get(testUser); d == nil || d.ReminderTime == nil {
		t.Error("draft and time selection must be retained for retry")
	}
}

func TestConfirmWithoutTimeWritesNothing(t *testing.T) {
	cal := &fakeCalendar{}
	c := newTestController(fakeCreds{testUser: {AccessToken: "tok"}}, cal)
	r := &fakeReplier{}

	c.drive(t, r,
		forward("standup"),
		press(actionCreateReminder),
		press(actionConfirmReminder),
	)

	if len(cal.inputs) != 0 {
		t.Fatalf("expected no calendar write, got %d", len(cal.inputs))
	}
	if !strings.Contains(r.last(), "No time is selected") {
		t.Errorf("expected corrective message, got %q", r.last())
	}
}

func TestFailedWriteKeepsSelectionForRetry(t *testing.T) {
	cal := &fakeCalendar{err: errors.New("quota exceeded")}
	c := newTestController(fakeCreds{testUser: {AccessToken: "tok"}}, cal)
	r := &fakeReplier{}

	c.drive(t, r,
		forward("review"),
		press(actionCreateReminder),
		press(actionTimeTonight),
		press(actionConfirmReminder),
	)

	if !strings.Contains(r.last(), "quota exceeded") {
		t.Errorf("expected provider message in response, got %q", r.last())
	}
	if d := c.drafts.Get(testUser); d.ReminderTime == nil {
		t.Fatal("time selection must survive a failed write")
	}

	// Retry succeeds and clears the field.
	cal.err = nil
	cal.link = "https://calendar.example/event/3"
	c.drive(t, r, press(actionConfirmReminder))

	if len(cal.inputs) != 2 {
		t.Errorf("expected a second write on retry, got %d", len(cal.inputs))
	}
	if d := c.drafts.Get(testUser); d.ReminderTime != nil {
		t.Error("reminder time must be cleared after the retried write")
	}
}

func TestReconfirmAfterSuccessGetsCorrectiveMessage(t *testing.T) {
	cal := &fakeCalendar{link: "https://calendar.example/event/4"}
	c := newTestController(fakeCreds{testUser: {AccessToken: "tok"}}, cal)
	r := &fakeReplier{}

	c.drive(t, r,
		forward("demo"),
		press(actionCreateMeeting),
		press(actionTimeTonight),
		press(actionConfirmMeeting),
	)
	// The time field is cleared now, so a second confirm is a corrective
	// message rather than a duplicate write.
	c.drive(t, r, press(actionConfirmMeeting))

	if len(cal.inputs) != 1 {
		t.Errorf("expected one write after field was cleared, got %d", len(cal.inputs))
	}
	if !strings.Contains(r.last(), "No time is selected") {
		t.Errorf("expected corrective message on re-confirm, got %q", r.last())
	}
}

func TestCustomTimeReprompts(t *testing.T) {
	c := newTestController(fakeCreds{}, &fakeCalendar{})
	r := &fakeReplier{}

	c.drive(t, r,
		forward("notes"),
		press(actionCreateReminder),
		press(actionTimeCustom),
	)

	if !strings.Contains(r.last(), "not available yet") {
		t.Errorf("expected unsupported notice, got %q", r.last())
	}
	// Still awaiting a time: a quick button must proceed to confirmation.
	c.drive(t, r, press(actionTimeTonight))
	if d := c.drafts.Get(testUser); d.ReminderTime == nil {
		t.Error("quick button after custom notice must still set the time")
	}
}

func TestEditFallsBackToReply(t *testing.T) {
	c := newTestController(fakeCreds{}, &fakeCalendar{})
	r := &fakeReplier{editFail: true}

	c.drive(t, r,
		forward("notes"),
		press(actionCreateReminder),
	)

	if len(r.edits) != 0 {
		t.Errorf("edit should have failed, got %v", r.edits)
	}
	// Forward prompt + time prompt fallback.
	if len(r.replies) != 2 {
		t.Fatalf("expected reply fallback, got %v", r.replies)
	}
	if !strings.Contains(r.replies[1], "When should I remind you?") {
		t.Errorf("expected time prompt via reply, got %q", r.replies[1])
	}
}

func TestEveryButtonPressIsAcked(t *testing.T) {
	c := newTestController(fakeCreds{}, &fakeCalendar{})
	r := &fakeReplier{}

	c.drive(t, r,
		forward("x"),
		press(actionCreateReminder),
		press(actionTimeCustom),
		press(actionTimeTonight),
		press(actionConfirmReminder),
	)

	if r.acks != 4 {
		t.Errorf("expected 4 callback acks, got %d", r.acks)
	}
}

func TestConnectCommandSendsAuthURL(t *testing.T) {
	c := newTestController(fakeCreds{}, &fakeCalendar{})
	r := &fakeReplier{}

	c.drive(t, r, Event{UserID: testUser, Kind: KindCommand, Command: "connect"})

	if !strings.Contains(r.last(), "https://auth.example/100") {
		t.Errorf("expected personal auth URL, got %q", r.last())
	}
}

func TestPingCommand(t *testing.T) {
	c := newTestController(fakeCreds{}, &fakeCalendar{})
	r := &fakeReplier{}

	c.drive(t, r, Event{UserID: testUser, Kind: KindCommand, Command: "ping"})

	if r.last() != "pong" {
		t.Errorf("expected pong, got %q", r.last())
	}
}

func TestConfirmationPromptShowsTimeAndPreview(t *testing.T) {
	c := newTestController(fakeCreds{}, &fakeCalendar{})
	r := &fakeReplier{}

	c.drive(t, r,
		forward(strings.Repeat("z", 300)),
		press(actionCreateReminder),
		press(actionTimeTonight),
	)

	prompt := r.last()
	if !strings.Contains(prompt, "19:00") {
		t.Errorf("expected resolved time in prompt, got %q", prompt)
	}
	if strings.Count(prompt, "z") != 200 {
		t.Errorf("expected 200-char preview, got %d chars", strings.Count(prompt, "z"))
	}
}
