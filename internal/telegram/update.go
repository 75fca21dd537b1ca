package telegram

import (
	"complaintbot/backend/internal/dialog"
	"complaintbot/backend/internal/models"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// extractMessageContent uniformly extracts text or a caption from a message.
func extractMessageContent(msg *tgbotapi.Message) string {
	if msg == nil {
		return ""
	}
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}

// commandOf returns the bot command of a text or caption without the slash
// and the optional "@botname" suffix.
func commandOf(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	command := strings.TrimPrefix(fields[0], "/")
	if at := strings.Index(command, "@"); at >= 0 {
		command = command[:at]
	}
	return command
}

// extractMedia returns the evidence attachment carried by a message, if any.
func extractMedia(msg *tgbotapi.Message) *models.Media {
	var media models.Media
	switch {
	case len(msg.Photo) > 0:
		media.Type = models.MediaPhoto
		media.FileID = msg.Photo[len(msg.Photo)-1].FileID
	case msg.Video != nil:
		media.Type = models.MediaVideo
		media.FileID = msg.Video.FileID
	case msg.Audio != nil:
		media.Type = models.MediaAudio
		media.FileID = msg.Audio.FileID
	case msg.Voice != nil:
		media.Type = models.MediaVoice
		media.FileID = msg.Voice.FileID
	case msg.Document != nil:
		media.Type = models.MediaDocument
		media.FileID = msg.Document.FileID
	default:
		return nil
	}
	if msg.Chat != nil {
		media.ChatID = msg.Chat.ID
	}
	media.MessageID = msg.MessageID
	return &media
}

func reporterOf(user *tgbotapi.User) models.Reporter {
	return models.Reporter{ID: user.ID, Handle: user.UserName, Lang: user.LanguageCode}
}

// DecodeUpdate converts a Telegram update into a dialog event. The second
// result is the callback query id to acknowledge; ok is false for updates
// the bot does not react to.
func DecodeUpdate(update tgbotapi.Update) (ev dialog.Event, callbackID string, ok bool) {
	switch {
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		if q.From == nil || q.Message == nil || q.Message.Chat == nil {
			return dialog.Event{}, q.ID, false
		}
		ev = dialog.Event{
			Reporter: reporterOf(q.From),
			ChatID:   q.Message.Chat.ID,
			Callback: &models.Callback{
				ChatID:      q.Message.Chat.ID,
				MessageID:   q.Message.MessageID,
				Data:        q.Data,
				MessageText: extractMessageContent(q.Message),
			},
		}
		return ev, q.ID, true

	case update.Message != nil:
		msg := update.Message
		if msg.From == nil || msg.Chat == nil {
			return dialog.Event{}, "", false
		}
		text := extractMessageContent(msg)
		ev = dialog.Event{
			Reporter:  reporterOf(msg.From),
			ChatID:    msg.Chat.ID,
			MessageID: msg.MessageID,
			Text:      text,
			Command:   commandOf(text),
			Media:     extractMedia(msg),
		}
		// stickers, locations and the like carry neither text nor evidence
		if ev.Media == nil && msg.Text == "" {
			return dialog.Event{}, "", false
		}
		return ev, "", true
	}
	return dialog.Event{}, "", false
}
