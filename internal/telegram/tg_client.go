package telegram

import (
	"complaintbot/backend/internal/models"
	"context"
	"errors"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of *tgbotapi.BotAPI used to talk to Telegram.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Client renders dialog and console output as Telegram API calls.
// It is also the messenger used for status pushes and the relay for evidence.
type Client struct {
	API Sender
}

func NewClient(api Sender) *Client {
	return &Client{API: api}
}

// Deliver sends every reply of a response in order and acknowledges the
// callback query, if any. Delivery continues past a failed reply.
func (c *Client) Deliver(ctx context.Context, resp models.Response, callbackID string) error {
	var errList []error
	if callbackID != "" {
		answer := tgbotapi.NewCallback(callbackID, resp.Answer)
		if resp.Alert {
			answer = tgbotapi.NewCallbackWithAlert(callbackID, resp.Answer)
		}
		if _, err := c.API.Request(answer); err != nil {
			log.Printf("WARN: failed to answer callback %s: %v", callbackID, err)
			errList = append(errList, err)
		}
	}
	for _, reply := range resp.Replies {
		if err := c.Send(ctx, reply); err != nil {
			log.Printf("ERROR: failed to deliver reply to chat %d: %v", reply.ChatID, err)
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}

// Send delivers a single reply.
func (c *Client) Send(_ context.Context, reply models.Reply) error {
	if reply.EditMessageID != 0 {
		edit := tgbotapi.NewEditMessageText(reply.ChatID, reply.EditMessageID, reply.Text)
		edit.ParseMode = tgbotapi.ModeHTML
		if kb := inlineMarkup(reply.Keyboard); kb != nil {
			edit.ReplyMarkup = kb
		}
		if _, err := c.API.Request(edit); err != nil {
			return fmt.Errorf("edit message %d: %w", reply.EditMessageID, err)
		}
		return nil
	}

	var out tgbotapi.Chattable
	if reply.VideoFileID != "" {
		video := tgbotapi.NewVideo(reply.ChatID, tgbotapi.FileID(reply.VideoFileID))
		video.Caption = reply.Text
		video.ParseMode = tgbotapi.ModeHTML
		video.ReplyToMessageID = reply.QuoteMessageID
		if markup := replyMarkup(reply.Keyboard); markup != nil {
			video.ReplyMarkup = markup
		}
		out = video
	} else {
		msg := tgbotapi.NewMessage(reply.ChatID, reply.Text)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.ReplyToMessageID = reply.QuoteMessageID
		if markup := replyMarkup(reply.Keyboard); markup != nil {
			msg.ReplyMarkup = markup
		}
		out = msg
	}
	if _, err := c.API.Send(out); err != nil {
		return fmt.Errorf("send to chat %d: %w", reply.ChatID, err)
	}
	return nil
}

// CopyMedia copies the original evidence message to another chat with a new caption.
func (c *Client) CopyMedia(_ context.Context, toChatID int64, media models.Media, caption string) error {
	cp := tgbotapi.NewCopyMessage(toChatID, media.ChatID, media.MessageID)
	cp.Caption = caption
	cp.ParseMode = tgbotapi.ModeHTML
	if _, err := c.API.Request(cp); err != nil {
		return fmt.Errorf("copy %s message %d: %w", media.Type, media.MessageID, err)
	}
	return nil
}

func inlineMarkup(kb *models.Keyboard) *tgbotapi.InlineKeyboardMarkup {
	if kb == nil || !kb.Inline || len(kb.Rows) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

// replyMarkup maps a keyboard to the value expected in ReplyMarkup, or nil for none.
func replyMarkup(kb *models.Keyboard) interface{} {
	switch {
	case kb == nil:
		return nil
	case kb.Remove:
		return tgbotapi.NewRemoveKeyboard(true)
	case kb.Inline:
		if markup := inlineMarkup(kb); markup != nil {
			return *markup
		}
		return nil
	}
	if len(kb.Rows) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.KeyboardButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(b.Label))
		}
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(buttons...))
	}
	markup := tgbotapi.NewReplyKeyboard(rows...)
	markup.OneTimeKeyboard = true
	return markup
}
