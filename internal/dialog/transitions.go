package dialog

import (
	"complaintbot/backend/internal/config"
	"complaintbot/backend/internal/errs"
	"complaintbot/backend/internal/models"
	"context"
	"html"
	"log"
	"strings"
	"unicode"
)

const (
	// anyStep matches every step; rows using it are checked first.
	anyStep models.Step = "*"
	// stay keeps the current step after the action.
	stay models.Step = ""
)

// action runs a transition. It reports whether the input was accepted; a
// rejected input never moves the conversation.
type action func(e *Engine, ctx context.Context, conv *models.Conversation, ev Event) (models.Response, bool)

type guard struct {
	name string
	fn   func(e *Engine, conv *models.Conversation, ev Event) bool
}

type transition struct {
	from  models.Step
	on    eventClass
	guard *guard
	name  string
	do    action
	next  models.Step
}

// Transition is a read-only view of one table row.
type Transition struct {
	From   models.Step
	On     string
	Guard  string
	Action string
	Next   models.Step
}

// Transitions returns the table in evaluation order.
func (e *Engine) Transitions() []Transition {
	out := make([]Transition, 0, len(e.table))
	for _, t := range e.table {
		row := Transition{From: t.from, On: string(t.on), Action: t.name, Next: t.next}
		if t.guard != nil {
			row.Guard = t.guard.name
		}
		out = append(out, row)
	}
	return out
}

var (
	digitsOnly = &guard{"digits", func(_ *Engine, _ *models.Conversation, ev Event) bool {
		if ev.Text == "" {
			return false
		}
		for _, r := range ev.Text {
			if !unicode.IsDigit(r) {
				return false
			}
		}
		return true
	}}
	knownAspect = &guard{"aspect label", func(e *Engine, _ *models.Conversation, ev Event) bool {
		_, ok := e.parseAspect(ev.Text)
		return ok
	}}
	nonEmpty = &guard{"non-empty", func(_ *Engine, _ *models.Conversation, ev Event) bool {
		return strings.TrimSpace(ev.Text) != ""
	}}
	isCommand = &guard{"command", func(_ *Engine, _ *models.Conversation, ev Event) bool {
		return ev.Command != ""
	}}
	hasComplaint = &guard{"filed complaint", func(_ *Engine, conv *models.Conversation, _ Event) bool {
		return conv.ComplaintID != 0
	}}
)

var textSteps = []models.Step{
	models.StepAwaitingRoute,
	models.StepAwaitingAspect,
	models.StepAwaitingDate,
	models.StepAwaitingTime,
	models.StepAwaitingStopName,
	models.StepAwaitingDescription,
}

func buildTable() []transition {
	t := []transition{
		// honored from any step
		{from: anyStep, on: classStartCmd, name: "restart", do: (*Engine).restart, next: models.StepIdle},
		{from: anyStep, on: classHelpCmd, name: "help", do: (*Engine).help, next: stay},
		{from: anyStep, on: classAdminCmd, name: "admin panel", do: (*Engine).adminPanel, next: stay},
		{from: anyStep, on: classGetIDCmd, name: "video id", do: (*Engine).videoID, next: stay},
		{from: anyStep, on: classAdminAction, name: "admin action", do: (*Engine).adminAction, next: stay},
		{from: anyStep, on: classStartButton, name: "begin complaint", do: (*Engine).begin, next: models.StepAwaitingRoute},

		{from: models.StepIdle, on: classText, name: "welcome", do: (*Engine).welcome, next: stay},
		{from: models.StepIdle, on: classMedia, name: "welcome", do: (*Engine).welcome, next: stay},
		{from: models.StepIdle, on: classAddEvidence, name: "idle hint", do: (*Engine).idleHint, next: stay},
		{from: models.StepIdle, on: classFinish, name: "idle hint", do: (*Engine).idleHint, next: stay},
		{from: models.StepIdle, on: classOtherButton, name: "idle hint", do: (*Engine).idleHint, next: stay},

		{from: models.StepAwaitingRoute, on: classText, guard: digitsOnly, name: "accept route", do: (*Engine).acceptRoute, next: models.StepAwaitingAspect},
		{from: models.StepAwaitingRoute, on: classText, name: "reject route", do: (*Engine).rejectRoute, next: stay},

		{from: models.StepAwaitingAspect, on: classText, guard: knownAspect, name: "accept aspect", do: (*Engine).acceptAspect, next: models.StepAwaitingDate},
		{from: models.StepAwaitingAspect, on: classText, name: "reject aspect", do: (*Engine).rejectAspect, next: stay},

		{from: models.StepAwaitingDate, on: classText, guard: nonEmpty, name: "accept date", do: (*Engine).acceptDate, next: models.StepAwaitingTime},
		{from: models.StepAwaitingTime, on: classText, guard: nonEmpty, name: "accept time", do: (*Engine).acceptTime, next: models.StepAwaitingStopName},
		{from: models.StepAwaitingStopName, on: classText, guard: nonEmpty, name: "accept stop", do: (*Engine).acceptStop, next: models.StepAwaitingDescription},
		{from: models.StepAwaitingDescription, on: classText, guard: nonEmpty, name: "finalize", do: (*Engine).finalize, next: models.StepAwaitingAction},

		{from: models.StepAwaitingAction, on: classAddEvidence, guard: hasComplaint, name: "evidence prompt", do: (*Engine).evidencePrompt, next: stay},
		{from: models.StepAwaitingAction, on: classAddEvidence, name: "lost complaint", do: (*Engine).lostComplaint, next: models.StepIdle},
		{from: models.StepAwaitingAction, on: classFinish, name: "finish", do: (*Engine).finish, next: models.StepIdle},
		{from: models.StepAwaitingAction, on: classMedia, guard: hasComplaint, name: "relay evidence", do: (*Engine).relayEvidence, next: stay},
		{from: models.StepAwaitingAction, on: classMedia, name: "lost complaint", do: (*Engine).lostComplaint, next: models.StepIdle},
		{from: models.StepAwaitingAction, on: classText, guard: isCommand, name: "unknown command", do: (*Engine).unknownCommand, next: stay},
		{from: models.StepAwaitingAction, on: classText, name: "action menu", do: (*Engine).actionMenu, next: stay},
		{from: models.StepAwaitingAction, on: classOtherButton, name: "ignore button", do: (*Engine).ignoreButton, next: stay},
	}

	for _, step := range textSteps {
		t = append(t,
			transition{from: step, on: classText, name: "empty input", do: (*Engine).emptyInput, next: stay},
			transition{from: step, on: classMedia, name: "media not expected", do: (*Engine).mediaNotExpected, next: stay},
			transition{from: step, on: classAddEvidence, name: "ignore button", do: (*Engine).ignoreButton, next: stay},
			transition{from: step, on: classFinish, name: "ignore button", do: (*Engine).ignoreButton, next: stay},
			transition{from: step, on: classOtherButton, name: "ignore button", do: (*Engine).ignoreButton, next: stay},
		)
	}
	return t
}

// parseAspect maps a keyboard label in any loaded language, or a category code, to its Aspect.
func (e *Engine) parseAspect(text string) (models.Aspect, bool) {
	text = strings.TrimSpace(text)
	for _, a := range models.Aspects() {
		if e.Localizer.Matches("aspect_"+string(a), text) || strings.EqualFold(text, string(a)) {
			return a, true
		}
	}
	return "", false
}

func (e *Engine) restart(_ context.Context, conv *models.Conversation, ev Event) (models.Response, bool) {
	conv.Reset()
	return e.respond(ev, e.text(conv.Lang, "welcome"), e.startKeyboard(conv.Lang)), true
}

func (e *Engine) welcome(_ context.Context, conv *models.Conversation, ev Event) (models.Response, bool) {
	return e.respond(ev, e.text(conv.Lang, "welcome"), e.startKeyboard(conv.Lang)), true
}

func (e *Engine) idleHint(_ context.Context, conv *models.Conversation, _ Event) (models.Response, bool) {
	return models.Response{Answer: e.text(conv.Lang, "idle_hint")}, true
}

func (e *Engine) ignoreButton(context.Context, *models.Conversation, Event) (models.Response, bool) {
	return models.Response{}, false
}

func (e *Engine) help(_ context.Context, conv *models.Conversation, ev Event) (models.Response, bool) {
	resp := models.Response{}.Add(
		models.Reply{ChatID: ev.ChatID, Text: e.text(conv.Lang, "help_intro")},
		models.Reply{ChatID: ev.ChatID, Text: e.text(conv.Lang, "help_text")},
	)
	if e.VideoFileID == "" {
		return resp.Add(models.Reply{ChatID: ev.ChatID, Text: e.text(conv.Lang, "help_video_missing")}), true
	}
	return resp.Add(models.Reply{
		ChatID:      ev.ChatID,
		Text:        e.text(conv.Lang, "help_video_caption"),
		VideoFileID: e.VideoFileID,
	}), true
}

func (e *Engine) adminPanel(ctx context.Context, _ *models.Conversation, ev Event) (models.Response, bool) {
	return e.Console.Panel(ctx, ev.Reporter.ID, ev.ChatID, ev.MessageID), true
}

func (e *Engine) adminAction(ctx context.Context, _ *models.Conversation, ev Event) (models.Response, bool) {
	return e.Console.HandleCallback(ctx, ev.Reporter.ID, *ev.Callback), true
}

func (e *Engine) videoID(_ context.Context, _ *models.Conversation, ev Event) (models.Response, bool) {
	return e.Console.VideoID(ev.Reporter.ID, ev.ChatID, ev.MessageID, ev.Media), true
}

// begin starts a fresh dialog from the welcome button, replacing the welcome message.
func (e *Engine) begin(_ context.Context, conv *models.Conversation, ev Event) (models.Response, bool) {
	conv.Reset()
	return models.Response{}.Add(models.Reply{
		ChatID:        ev.Callback.ChatID,
		Text:          e.text(conv.Lang, "step_route"),
		EditMessageID: ev.Callback.MessageID,
	}), true
}

func (e *Engine) acceptRoute(_ context.Context, conv *models.Conversation, ev Event) (models.Response, bool) {
	conv.Fields.RouteNumber = ev.Text
	text, kb := e.prompt(conv, models.StepAwaitingAspect)
	return e.respond(ev, text, kb), true
}

func (e *Engine) rejectRoute(_ context.Context, conv *models.Conversation, ev Event) (models.Response, bool) {
	return e.respond(ev, e.text(conv.Lang, "route_invalid"), nil), false
}

func (e *Engine) acceptAspect(_ context.Context, conv *models.Conversation, ev Event) (models.Response, bool) {
	aspect, _ := e.parseAspect(ev.Text)
	conv.Fields.Aspect = aspect
	text, kb := e.prompt(conv, models.StepAwaitingDate)
	return e.respond(ev, text, kb), true
}

func (e *Engine) rejectAspect(_ context.Context, conv *models.Conversation, ev Event) (models.Response, bool) {
	return e.respond(ev, e.text(conv.Lang, "aspect_invalid"), e.aspectKeyboard(conv.Lang)), false
}

func (e *Engine) acceptDate(_ context.Context, conv *models.Conversation, ev Event) (models.Response, bool) {
	now := e.now()
	switch {
	case e.Localizer.Matches("date_today", ev.Text):
		conv.Fields.IncidentDate = now.Format(config.DateLayout)
	case e.Localizer.Matches("date_yesterday", ev.Text):
		conv.Fields.IncidentDate = now.AddDate(0, 0, -1).Format(config.DateLayout)
	default:
		conv.Fields.IncidentDate = ev.Text
	}
	text, kb := e.prompt(conv, models.StepAwaitingTime)
	return e.respond(ev, text, kb), true
}

func (e *Engine) acceptTime(_ context.Context, conv *models.Conversation, ev Event) (models.Response, bool) {
	if e.Localizer.Matches("time_now", ev.Text) {
		conv.Fields.IncidentTime = e.now().Format(config.TimeLayout)
	} else {
		conv.Fields.IncidentTime = ev.Text
	}
	text, kb := e.prompt(conv, models.StepAwaitingStopName)
	return e.respond(ev, text, kb), true
}

func (e *Engine) acceptStop(_ context.Context, conv *models.Conversation, ev Event) (models.Response, bool) {
	conv.Fields.Location = strings.TrimSpace(ev.Text)
	text, kb := e.prompt(conv, models.StepAwaitingDescription)
	return e.respond(ev, text, kb), true
}

func (e *Engine) emptyInput(_ context.Context, conv *models.Conversation, ev Event) (models.Response, bool) {
	text, kb := e.prompt(conv, conv.Step)
	return e.respond(ev, e.text(conv.Lang, "empty_input")+"\n\n"+text, kb), false
}

func (e *Engine) mediaNotExpected(_ context.Context, conv *models.Conversation, ev Event) (models.Response, bool) {
	text, kb := e.prompt(conv, conv.Step)
	return e.respond(ev, e.text(conv.Lang, "media_not_expected")+"\n\n"+text, kb), false
}

// finalize files the complaint. On a store failure the conversation stays at
// the description step so the reporter can send it again.
func (e *Engine) finalize(ctx context.Context, conv *models.Conversation, ev Event) (models.Response, bool) {
	reporter := models.Reporter{ID: ev.Reporter.ID, Handle: ev.Reporter.Handle, Lang: conv.Lang}
	rec, err := e.Filer.File(ctx, reporter, conv.Fields, ev.Text)
	if err != nil {
		log.Printf("ERROR: filing complaint for %d failed: %v", reporter.ID, err)
		return e.respond(ev, e.text(conv.Lang, "filing_failed"), nil), false
	}
	conv.ComplaintID = rec.ID

	lang := conv.Lang
	summary := e.text(lang, "filed_summary",
		rec.ID,
		html.EscapeString(rec.RouteNumber),
		html.EscapeString(rec.IncidentDateTime),
		html.EscapeString(rec.Location),
		e.text(lang, "aspect_"+string(rec.Aspect)),
		e.text(lang, "status_"+string(rec.Status)),
		e.text(lang, "severity_"+string(rec.Severity)),
	)
	return e.respond(ev, summary, e.actionKeyboard(lang)), true
}

func (e *Engine) evidencePrompt(_ context.Context, conv *models.Conversation, ev Event) (models.Response, bool) {
	return models.Response{}.Add(models.Reply{
		ChatID:         ev.Callback.ChatID,
		Text:           e.text(conv.Lang, "evidence_prompt"),
		QuoteMessageID: ev.Callback.MessageID,
	}), true
}

func (e *Engine) relayEvidence(ctx context.Context, conv *models.Conversation, ev Event) (models.Response, bool) {
	reporter := models.Reporter{ID: ev.Reporter.ID, Handle: ev.Reporter.Handle, Lang: conv.Lang}
	if err := e.Console.RelayEvidence(ctx, reporter, conv.ComplaintID, *ev.Media); err != nil {
		log.Printf("ERROR: %v", err)
		return e.respond(ev, e.text(conv.Lang, "evidence_failed"), nil), false
	}
	return e.respond(ev, e.text(conv.Lang, "evidence_received", conv.ComplaintID), e.actionKeyboard(conv.Lang)), true
}

func (e *Engine) lostComplaint(_ context.Context, conv *models.Conversation, ev Event) (models.Response, bool) {
	log.Printf("WARN: evidence from %d: %v", conv.ReporterID, errs.ErrNoComplaint)
	conv.Reset()
	if ev.isCallback() {
		return models.Response{}.Add(models.Reply{ChatID: ev.Callback.ChatID, Text: e.text(conv.Lang, "evidence_no_complaint")}), true
	}
	return e.respond(ev, e.text(conv.Lang, "evidence_no_complaint"), nil), true
}

func (e *Engine) finish(_ context.Context, conv *models.Conversation, ev Event) (models.Response, bool) {
	id := conv.ComplaintID
	conv.Reset()
	return models.Response{}.Add(models.Reply{
		ChatID:        ev.Callback.ChatID,
		Text:          e.text(conv.Lang, "finished", id),
		EditMessageID: ev.Callback.MessageID,
	}), true
}

func (e *Engine) unknownCommand(_ context.Context, conv *models.Conversation, ev Event) (models.Response, bool) {
	return e.respond(ev, e.text(conv.Lang, "action_unknown_command"), e.actionKeyboard(conv.Lang)), false
}

func (e *Engine) actionMenu(_ context.Context, conv *models.Conversation, ev Event) (models.Response, bool) {
	return e.respond(ev, e.text(conv.Lang, "action_unknown"), e.actionKeyboard(conv.Lang)), false
}
