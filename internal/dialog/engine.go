// Package dialog drives the guided complaint intake conversation.
//
// Every reporter has one conversation. Each inbound event is matched against a
// transition table by (current step, event class, guard); the first matching row
// runs its action and, if the action accepts the input, moves the conversation to
// the row's next step. Rejected input leaves the step unchanged, so retries are
// idempotent.
package dialog

import (
	"complaintbot/backend/internal/admin"
	"complaintbot/backend/internal/localization"
	"complaintbot/backend/internal/models"
	"complaintbot/backend/internal/storage"
	"context"
	"fmt"
	"log"
	"time"
)

// Filer persists a completed complaint.
type Filer interface {
	File(ctx context.Context, reporter models.Reporter, fields models.ComplaintFields, description string) (*models.ComplaintRecord, error)
}

// Console is the operator surface reachable from the chat.
type Console interface {
	Panel(ctx context.Context, callerID, chatID int64, quote int) models.Response
	HandleCallback(ctx context.Context, callerID int64, cb models.Callback) models.Response
	RelayEvidence(ctx context.Context, reporter models.Reporter, complaintID int64, media models.Media) error
	VideoID(callerID, chatID int64, quote int, media *models.Media) models.Response
}

type Engine struct {
	Sessions    storage.SessionStore
	Filer       Filer
	Console     Console
	Localizer   *localization.Localizer
	VideoFileID string

	now   func() time.Time
	locks keyedMutex
	table []transition
}

func NewEngine(sessions storage.SessionStore, filer Filer, console Console, loc *localization.Localizer, videoFileID string) *Engine {
	e := &Engine{
		Sessions:    sessions,
		Filer:       filer,
		Console:     console,
		Localizer:   loc,
		VideoFileID: videoFileID,
		now:         time.Now,
	}
	e.table = buildTable()
	return e
}

// SetClock replaces the clock used for date/time aliases and conversation timestamps.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Handle processes one event for its reporter. Events of one reporter are
// handled strictly one at a time.
func (e *Engine) Handle(ctx context.Context, ev Event) (models.Response, error) {
	unlock := e.locks.Lock(ev.Reporter.ID)
	defer unlock()

	conv, err := e.Sessions.Load(ctx, ev.Reporter.ID)
	if err != nil {
		lang := e.Localizer.Resolve(ev.Reporter.Lang)
		return e.respond(ev, e.text(lang, "store_error"), nil), fmt.Errorf("load conversation %d: %w", ev.Reporter.ID, err)
	}
	if conv == nil {
		conv = models.NewConversation(ev.Reporter.ID, e.Localizer.Resolve(ev.Reporter.Lang))
	}

	class := classify(ev)
	t := e.lookup(conv, class, ev)
	if t == nil {
		return models.Response{}, nil
	}

	resp, accepted := t.do(e, ctx, conv, ev)
	if accepted && t.next != stay {
		conv.Step = t.next
	}

	if err := e.persist(ctx, conv); err != nil {
		log.Printf("ERROR: save conversation %d: %v", conv.ReporterID, err)
		return resp, err
	}
	return resp, nil
}

// persist keeps the conversation, or drops it once it is back at Idle.
func (e *Engine) persist(ctx context.Context, conv *models.Conversation) error {
	if conv.Step == models.StepIdle {
		return e.Sessions.Clear(ctx, conv.ReporterID)
	}
	conv.UpdatedAt = e.now()
	return e.Sessions.Save(ctx, conv)
}

// Sweep clears conversations with no input for longer than idle.
func (e *Engine) Sweep(ctx context.Context, idle time.Duration) (int, error) {
	return e.Sessions.Sweep(ctx, idle, e.now())
}

func classify(ev Event) eventClass {
	if ev.isCallback() {
		switch data := ev.Callback.Data; {
		case data == TokenStart:
			return classStartButton
		case data == TokenAddEvidence:
			return classAddEvidence
		case data == TokenFinish:
			return classFinish
		case admin.IsAction(data):
			return classAdminAction
		default:
			return classOtherButton
		}
	}
	if ev.Media != nil {
		if ev.Command == CommandGetID {
			return classGetIDCmd
		}
		return classMedia
	}
	switch ev.Command {
	case CommandStart:
		return classStartCmd
	case CommandHelp:
		return classHelpCmd
	case CommandAdmin:
		return classAdminCmd
	}
	return classText
}

func (e *Engine) lookup(conv *models.Conversation, class eventClass, ev Event) *transition {
	for i := range e.table {
		t := &e.table[i]
		if t.from != anyStep && t.from != conv.Step {
			continue
		}
		if t.on != class {
			continue
		}
		if t.guard != nil && !t.guard.fn(e, conv, ev) {
			continue
		}
		return t
	}
	return nil
}

func (e *Engine) text(lang, key string, args ...any) string {
	if len(args) == 0 {
		return e.Localizer.GetString(lang, key)
	}
	return e.Localizer.Format(lang, key, args...)
}

// respond builds a single reply to the event's chat, quoting the inbound message.
func (e *Engine) respond(ev Event, text string, kb *models.Keyboard) models.Response {
	reply := models.Reply{ChatID: ev.ChatID, Text: text, Keyboard: kb}
	if !ev.isCallback() {
		reply.QuoteMessageID = ev.MessageID
	}
	return models.Response{}.Add(reply)
}
