// ABOUTME: Inbound event union and outbound reply contract
// ABOUTME: The transport adapter produces these; the controller consumes them
package bot

// EventKind discriminates inbound events. The adapter layer is
// responsible for classifying raw transport updates into exactly one
// kind, each carrying only the fields relevant to it.
type EventKind int

const (
	// KindForward is a message forwarded from another chat.
	KindForward EventKind = iota
	// KindMessage is a plain, non-forwarded message.
	KindMessage
	// KindButton is an inline button press carrying an action id.
	KindButton
	// KindCommand is a bot command such as /start or /connect.
	KindCommand
)

// Event is an inbound chat event tagged with the originating user.
type Event struct {
	UserID int64
	Kind   EventKind

	// Text is the message text or media caption (forward and plain
	// message kinds only).
	Text string

	// Provenance of a forwarded message, display-only.
	SourceChatTitle  string
	SourceSenderName string

	// Action is the opaque button action id (button kind only).
	Action string

	// Command is the command name without the slash (command kind only).
	Command string
}

// Button is an inline keyboard button: a label and an opaque action id.
type Button struct {
	Label  string
	Action string
}

// Replier renders responses for one inbound event. Edit rewrites the
// message the pressed button was attached to and fails when the event
// did not originate from a button press.
type Replier interface {
	Reply(text string, rows ...[]Button) error
	Edit(text string, rows ...[]Button) error
	// AnswerCallback acks a button press so the control does not show a
	// stuck loading indicator. No-op for non-button events.
	AnswerCallback() error
}
