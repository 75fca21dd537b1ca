package dialog

import "complaintbot/backend/internal/models"

// Callback tokens of the reporter-facing inline buttons.
const (
	TokenStart       = "start_complaint"
	TokenAddEvidence = "add_evidence"
	TokenFinish      = "finish_complaint"
)

// Top-level commands honored from any step.
const (
	CommandStart = "start"
	CommandHelp  = "help"
	CommandAdmin = "admin"
	CommandGetID = "get_id"
)

// Event is one inbound user action, already decoded from the transport.
type Event struct {
	Reporter models.Reporter
	ChatID   int64
	// MessageID is the inbound message, used to quote replies.
	MessageID int

	// Text is the message text (or media caption).
	Text string
	// Command is the bot command without the leading slash, when Text is one.
	Command string
	// Media is set for attachments.
	Media *models.Media
	// Callback is set for inline button presses.
	Callback *models.Callback
}

// eventClass is the shape of an event as seen by the transition table.
type eventClass string

const (
	classText        eventClass = "text"
	classMedia       eventClass = "media"
	classStartCmd    eventClass = "/start"
	classHelpCmd     eventClass = "/help"
	classAdminCmd    eventClass = "/admin"
	classGetIDCmd    eventClass = "/get_id"
	classStartButton eventClass = TokenStart
	classAddEvidence eventClass = TokenAddEvidence
	classFinish      eventClass = TokenFinish
	classAdminAction eventClass = "admin_action"
	classOtherButton eventClass = "callback"
)

func (e Event) isCallback() bool { return e.Callback != nil }
