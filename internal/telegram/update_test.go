package telegram

import (
	"complaintbot/backend/internal/dialog"
	"complaintbot/backend/internal/models"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func user() *tgbotapi.User {
	return &tgbotapi.User{ID: 12345, UserName: "rider", LanguageCode: "ru"}
}

func TestDecodeUpdate_TextCommand(t *testing.T) {
	update := tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 7,
		From:      user(),
		Chat:      &tgbotapi.Chat{ID: 12345},
		Text:      "/start@ComplaintBot",
	}}

	ev, callbackID, ok := DecodeUpdate(update)

	require.True(t, ok)
	assert.Empty(t, callbackID)
	assert.Equal(t, models.Reporter{ID: 12345, Handle: "rider", Lang: "ru"}, ev.Reporter)
	assert.Equal(t, int64(12345), ev.ChatID)
	assert.Equal(t, 7, ev.MessageID)
	assert.Equal(t, dialog.CommandStart, ev.Command)
	assert.Nil(t, ev.Media)
}

func TestDecodeUpdate_PlainTextHasNoCommand(t *testing.T) {
	update := tgbotapi.Update{Message: &tgbotapi.Message{
		From: user(),
		Chat: &tgbotapi.Chat{ID: 12345},
		Text: "12",
	}}

	ev, _, ok := DecodeUpdate(update)

	require.True(t, ok)
	assert.Equal(t, "12", ev.Text)
	assert.Empty(t, ev.Command)
}

func TestDecodeUpdate_VideoWithCaptionCommand(t *testing.T) {
	update := tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 9,
		From:      user(),
		Chat:      &tgbotapi.Chat{ID: 12345},
		Caption:   "/get_id",
		Video:     &tgbotapi.Video{FileID: "BAACAgIAAxkBAAI"},
	}}

	ev, _, ok := DecodeUpdate(update)

	require.True(t, ok)
	assert.Equal(t, dialog.CommandGetID, ev.Command)
	require.NotNil(t, ev.Media)
	assert.Equal(t, models.Media{Type: models.MediaVideo, FileID: "BAACAgIAAxkBAAI", ChatID: 12345, MessageID: 9}, *ev.Media)
}

func TestDecodeUpdate_LargestPhotoIsUsed(t *testing.T) {
	update := tgbotapi.Update{Message: &tgbotapi.Message{
		From:  user(),
		Chat:  &tgbotapi.Chat{ID: 12345},
		Photo: []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}},
	}}

	ev, _, ok := DecodeUpdate(update)

	require.True(t, ok)
	require.NotNil(t, ev.Media)
	assert.Equal(t, models.MediaPhoto, ev.Media.Type)
	assert.Equal(t, "large", ev.Media.FileID)
}

func TestDecodeUpdate_MediaKinds(t *testing.T) {
	tests := []struct {
		name string
		msg  tgbotapi.Message
		want models.MediaType
	}{
		{"audio", tgbotapi.Message{Audio: &tgbotapi.Audio{FileID: "a"}}, models.MediaAudio},
		{"voice", tgbotapi.Message{Voice: &tgbotapi.Voice{FileID: "v"}}, models.MediaVoice},
		{"document", tgbotapi.Message{Document: &tgbotapi.Document{FileID: "d"}}, models.MediaDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.msg
			msg.From = user()
			msg.Chat = &tgbotapi.Chat{ID: 1}

			ev, _, ok := DecodeUpdate(tgbotapi.Update{Message: &msg})

			require.True(t, ok)
			require.NotNil(t, ev.Media)
			assert.Equal(t, tt.want, ev.Media.Type)
		})
	}
}

func TestDecodeUpdate_StickerIsIgnored(t *testing.T) {
	update := tgbotapi.Update{Message: &tgbotapi.Message{
		From:    user(),
		Chat:    &tgbotapi.Chat{ID: 12345},
		Sticker: &tgbotapi.Sticker{FileID: "s"},
	}}

	_, _, ok := DecodeUpdate(update)

	assert.False(t, ok)
}

func TestDecodeUpdate_Callback(t *testing.T) {
	update := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb-1",
		From: user(),
		Data: "admin_resolve:17",
		Message: &tgbotapi.Message{
			MessageID: 55,
			Chat:      &tgbotapi.Chat{ID: 999},
			Text:      "ID: #17",
		},
	}}

	ev, callbackID, ok := DecodeUpdate(update)

	require.True(t, ok)
	assert.Equal(t, "cb-1", callbackID)
	assert.Equal(t, int64(12345), ev.Reporter.ID)
	require.NotNil(t, ev.Callback)
	assert.Equal(t, models.Callback{ChatID: 999, MessageID: 55, Data: "admin_resolve:17", MessageText: "ID: #17"}, *ev.Callback)
}

func TestDecodeUpdate_CallbackWithoutMessage(t *testing.T) {
	update := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{ID: "cb-2", From: user(), Data: "x"}}

	_, callbackID, ok := DecodeUpdate(update)

	assert.False(t, ok)
	assert.Equal(t, "cb-2", callbackID)
}

func TestCommandOf(t *testing.T) {
	assert.Equal(t, "help", commandOf("/help"))
	assert.Equal(t, "admin", commandOf("/admin@bot extra"))
	assert.Empty(t, commandOf("help"))
	assert.Empty(t, commandOf(""))
}
