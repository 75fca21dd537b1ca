package dialog

import (
	"complaintbot/backend/internal/models"
	"html"
)

func (e *Engine) startKeyboard(lang string) *models.Keyboard {
	return &models.Keyboard{
		Inline: true,
		Rows:   [][]models.Button{{{Label: e.text(lang, "btn_start"), Data: TokenStart}}},
	}
}

func (e *Engine) actionKeyboard(lang string) *models.Keyboard {
	return &models.Keyboard{
		Inline: true,
		Rows: [][]models.Button{
			{{Label: e.text(lang, "btn_add_evidence"), Data: TokenAddEvidence}},
			{{Label: e.text(lang, "btn_finish"), Data: TokenFinish}},
		},
	}
}

// aspectKeyboard lays the category labels out two per row.
func (e *Engine) aspectKeyboard(lang string) *models.Keyboard {
	kb := &models.Keyboard{}
	var row []models.Button
	for _, a := range models.Aspects() {
		row = append(row, models.Button{Label: e.text(lang, "aspect_"+string(a))})
		if len(row) == 2 {
			kb.Rows = append(kb.Rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		kb.Rows = append(kb.Rows, row)
	}
	return kb
}

func (e *Engine) dateKeyboard(lang string) *models.Keyboard {
	return &models.Keyboard{Rows: [][]models.Button{{
		{Label: e.text(lang, "date_today")},
		{Label: e.text(lang, "date_yesterday")},
	}}}
}

func (e *Engine) timeKeyboard(lang string) *models.Keyboard {
	return &models.Keyboard{Rows: [][]models.Button{{{Label: e.text(lang, "time_now")}}}}
}

var removeKeyboard = &models.Keyboard{Remove: true}

// prompt returns the question asked at step, with its keyboard.
func (e *Engine) prompt(conv *models.Conversation, step models.Step) (string, *models.Keyboard) {
	lang := conv.Lang
	switch step {
	case models.StepAwaitingRoute:
		return e.text(lang, "step_route"), nil
	case models.StepAwaitingAspect:
		return e.text(lang, "step_aspect", html.EscapeString(conv.Fields.RouteNumber)), e.aspectKeyboard(lang)
	case models.StepAwaitingDate:
		return e.text(lang, "step_date"), e.dateKeyboard(lang)
	case models.StepAwaitingTime:
		return e.text(lang, "step_time"), e.timeKeyboard(lang)
	case models.StepAwaitingStopName:
		return e.text(lang, "step_stop"), removeKeyboard
	case models.StepAwaitingDescription:
		return e.text(lang, "step_description", html.EscapeString(conv.Fields.Location)), removeKeyboard
	case models.StepAwaitingAction:
		return e.text(lang, "action_unknown"), e.actionKeyboard(lang)
	default:
		return e.text(lang, "welcome"), e.startKeyboard(lang)
	}
}
