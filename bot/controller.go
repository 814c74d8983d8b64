// ABOUTME: Conversation state machine for turning forwards into calendar events
// ABOUTME: Forward, intent, time, and confirm steps culminating in a calendar write
package bot

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/oauth2"

	"github.com/goodmemory/goodmemory-bot/gcal"
	"github.com/goodmemory/goodmemory-bot/models"
	"github.com/goodmemory/goodmemory-bot/store"
)

// Button action ids. Opaque to the transport; stable because they ride
// inside already-rendered keyboards.
const (
	actionCreateReminder  = "CREATE_REMINDER"
	actionCreateMeeting   = "CREATE_MEETING"
	actionTimePlus1h      = "TIME_PLUS_1H"
	actionTimeTonight     = "TIME_TONIGHT"
	actionTimeTomorrow    = "TIME_TOMORROW_MORNING"
	actionTimeCustom      = "TIME_CUSTOM"
	actionConfirmReminder = "CONFIRM_REMINDER"
	actionConfirmMeeting  = "CONFIRM_MEETING"
)

const (
	reminderDuration  = 30 * time.Minute
	meetingDuration   = 60 * time.Minute
	displayTimeLayout = "Mon, 02 Jan 2006 15:04"
)

// Calendar performs the final external write.
type Calendar interface {
	CreateEvent(ctx context.Context, token *oauth2.Token, in gcal.EventInput) (string, error)
}

// CredentialSource looks up a user's stored calendar credentials.
type CredentialSource interface {
	Get(userID int64) (*oauth2.Token, bool)
}

// Controller is the conversation state machine. It is the sole mutator
// of the draft store. State is tracked implicitly in the draft slot:
// presence means a flow is underway, the intent and time fields say how
// far it got.
type Controller struct {
	drafts   *store.DraftStore
	creds    CredentialSource
	calendar Calendar
	authURL  func(userID int64) string

	now func() time.Time
}

func NewController(drafts *store.DraftStore, creds CredentialSource, calendar Calendar, authURL func(int64) string) *Controller {
	return &Controller{
		drafts:   drafts,
		creds:    creds,
		calendar: calendar,
		authURL:  authURL,
		now:      time.Now,
	}
}

// HandleEvent dispatches one inbound event. Errors from outbound replies
// are logged, never propagated into user-visible state.
func (c *Controller) HandleEvent(ctx context.Context, ev Event, r Replier) {
	var err error
	switch ev.Kind {
	case KindForward:
		err = c.handleForward(ev, r)
	case KindMessage:
		err = c.handleMessage(r)
	case KindCommand:
		err = c.handleCommand(ev, r)
	case KindButton:
		err = c.handleButton(ctx, ev, r)
	}
	if err != nil {
		log.Printf("event handling for user %d failed: %v", ev.UserID, err)
	}
}

// handleForward captures the forwarded text into a fresh draft,
// unconditionally replacing any prior one, and prompts for the intent.
func (c *Controller) handleForward(ev Event, r Replier) error {
	text := ev.Text
	if text == "" {
		text = "[message without text]"
	}

	c.drafts.Put(ev.UserID, &models.Draft{
		Text:             text,
		SourceChatTitle:  ev.SourceChatTitle,
		SourceSenderName: ev.SourceSenderName,
		ReceivedAt:       c.now(),
	})

	return r.Reply("Message received. What should I create?",
		[]Button{{Label: "⏰ Reminder", Action: actionCreateReminder}},
		[]Button{{Label: "📅 Meeting", Action: actionCreateMeeting}},
	)
}

// handleMessage covers plain, non-forwarded messages. No draft is created
// or touched.
func (c *Controller) handleMessage(r Replier) error {
	return r.Reply("To create a reminder or a meeting, forward me a message from another chat 🙂")
}

func (c *Controller) handleCommand(ev Event, r Replier) error {
	switch ev.Command {
	case "start":
		return r.Reply("Hi! I turn forwarded messages into calendar reminders and meetings.\n\n" +
			"How to use me:\n" +
			"1) Forward me a message from any chat\n" +
			"2) Pick what to create and when\n\n" +
			"Send /connect to link your Google Calendar first.")
	case "ping":
		return r.Reply("pong")
	case "connect":
		return r.Reply("Open this link to connect your Google Calendar:\n" + c.authURL(ev.UserID))
	default:
		return r.Reply("Unknown command. Try /start.")
	}
}

func (c *Controller) handleButton(ctx context.Context, ev Event, r Replier) error {
	// Ack first so the button never shows a stuck loading indicator,
	// whatever path the handling takes.
	if err := r.AnswerCallback(); err != nil {
		log.Printf("callback ack for user %d failed: %v", ev.UserID, err)
	}

	draft := c.drafts.Get(ev.UserID)
	if draft == nil {
		// No draft: process restarted, or a stale keyboard. Recover by
		// asking for a fresh forward.
		return r.Reply("I don't see a message. Forward it to me again 🙂")
	}

	switch ev.Action {
	case actionCreateReminder:
		draft.Intent = models.IntentReminder
		return c.promptTime(ev, r, "When should I remind you?")
	case actionCreateMeeting:
		draft.Intent = models.IntentMeeting
		return c.promptTime(ev, r, "When is the meeting?")

	case actionTimePlus1h:
		return c.handleTimeSelection(ev, r, draft, plusOneHour(c.now()))
	case actionTimeTonight:
		return c.handleTimeSelection(ev, r, draft, todayAt(c.now(), tonightHour))
	case actionTimeTomorrow:
		return c.handleTimeSelection(ev, r, draft, tomorrowAt(c.now(), morningHour))
	case actionTimeCustom:
		// Free-form date/time entry is deliberately unsupported; the
		// prompt is re-rendered with a notice and the state is unchanged.
		return c.promptTime(ev, r, "Free-form date/time entry is not available yet. Use the quick buttons 🙂")

	case actionConfirmReminder:
		return c.confirm(ctx, ev, r, draft, models.IntentReminder)
	case actionConfirmMeeting:
		return c.confirm(ctx, ev, r, draft, models.IntentMeeting)
	}

	return nil
}

func timeButtons() [][]Button {
	return [][]Button{
		{{Label: "🕒 In 1 hour", Action: actionTimePlus1h}},
		{{Label: "🌆 Tonight", Action: actionTimeTonight}},
		{{Label: "🌅 Tomorrow morning", Action: actionTimeTomorrow}},
		{{Label: "📅 Pick date/time", Action: actionTimeCustom}},
	}
}

func (c *Controller) promptTime(ev Event, r Replier, text string) error {
	return c.editOrReply(ev, r, text, timeButtons()...)
}

// handleTimeSelection stores the resolved time on the field matching the
// chosen intent and renders the confirmation prompt.
func (c *Controller) handleTimeSelection(ev Event, r Replier, draft *models.Draft, when time.Time) error {
	var question, icon, confirmAction string
	switch draft.Intent {
	case models.IntentMeeting:
		draft.MeetingTime = &when
		question = "Create the meeting?"
		icon = "📅"
		confirmAction = actionConfirmMeeting
	default:
		// The reminder flow is also the fallback for drafts captured
		// before an intent was recorded.
		draft.ReminderTime = &when
		question = "Create the reminder?"
		icon = "⏰"
		confirmAction = actionConfirmReminder
	}

	text := fmt.Sprintf("%s\n\n%s %s\n\n📝 %s",
		question, icon, when.Format(displayTimeLayout), draft.Preview())

	return c.editOrReply(ev, r, text,
		[]Button{{Label: "✅ Create", Action: confirmAction}},
	)
}

// confirm performs the external commit. On success only the confirmed
// flow's time field is cleared; on failure the selection is retained so
// confirm can simply be pressed again.
func (c *Controller) confirm(ctx context.Context, ev Event, r Replier, draft *models.Draft, intent models.Intent) error {
	token, ok := c.creds.Get(ev.UserID)
	if !ok {
		return c.editOrReply(ev, r,
			"Your Google Calendar is not connected yet. Send /connect to link it, then press confirm again.")
	}

	var when *time.Time
	var input gcal.EventInput
	if intent == models.IntentMeeting {
		when = draft.MeetingTime
		if when != nil {
			input = gcal.EventInput{
				Summary:     draft.MeetingTitle(),
				Description: draft.Text,
				Start:       *when,
				End:         when.Add(meetingDuration),
			}
		}
	} else {
		when = draft.ReminderTime
		if when != nil {
			input = gcal.EventInput{
				Summary:     "Reminder",
				Description: draft.Text,
				Start:       *when,
				End:         when.Add(reminderDuration),
			}
		}
	}

	if when == nil {
		return c.editOrReply(ev, r, "No time is selected yet. Pick a time first.", timeButtons()...)
	}

	link, err := c.calendar.CreateEvent(ctx, token, input)
	if err != nil {
		log.Printf("calendar write for user %d failed: %v", ev.UserID, err)
		return c.editOrReply(ev, r,
			fmt.Sprintf("Could not create the event: %v\nPress ✅ Create to try again.", err),
			[]Button{{Label: "✅ Create", Action: ev.Action}},
		)
	}

	if intent == models.IntentMeeting {
		draft.MeetingTime = nil
		return c.editOrReply(ev, r, "✅ Meeting created: "+link)
	}
	draft.ReminderTime = nil
	return c.editOrReply(ev, r, "✅ Reminder created: "+link)
}

// editOrReply attempts an in-place edit for button-originated events and
// falls back to sending a new message on any edit failure.
func (c *Controller) editOrReply(ev Event, r Replier, text string, rows ...[]Button) error {
	if ev.Kind == KindButton {
		if err := r.Edit(text, rows...); err == nil {
			return nil
		}
	}
	return r.Reply(text, rows...)
}
