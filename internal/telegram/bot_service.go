// Package telegram handles the integration with the Telegram Bot API.
// It is responsible for receiving updates from Telegram, passing them to the
// intake dialog and rendering the responses back as Telegram messages.
package telegram

import (
	"complaintbot/backend/internal/dialog"
	"complaintbot/backend/internal/models"
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Handler processes one decoded event.
type Handler interface {
	Handle(ctx context.Context, ev dialog.Event) (models.Response, error)
}

// BotService is responsible for receiving Telegram updates and routing them to the dialog.
type BotService struct {
	BotAPI *tgbotapi.BotAPI
	Client *Client
	Engine Handler
}

// NewBotAPI authorizes the bot token.
func NewBotAPI(token string, debug bool) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("authorize bot: %w", err)
	}
	bot.Debug = debug
	log.Printf("✅ Authorized on account %s", bot.Self.UserName)
	return bot, nil
}

// NewBotService creates a new BotService instance.
func NewBotService(bot *tgbotapi.BotAPI, client *Client, engine Handler) *BotService {
	return &BotService{
		BotAPI: bot,
		Client: client,
		Engine: engine,
	}
}

// HandleUpdate runs one update through the dialog and delivers the response.
func (s *BotService) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	ev, callbackID, ok := DecodeUpdate(update)
	if !ok {
		if callbackID != "" {
			_ = s.Client.Deliver(ctx, models.Response{}, callbackID)
		}
		return
	}

	resp, err := s.Engine.Handle(ctx, ev)
	if err != nil {
		log.Printf("ERROR: handling update %d from %d: %v", update.UpdateID, ev.Reporter.ID, err)
	}
	if err := s.Client.Deliver(ctx, resp, callbackID); err != nil {
		log.Printf("WARN: response to %d was not fully delivered: %v", ev.Reporter.ID, err)
	}
}

// Run is the main loop for receiving Telegram updates. Updates are handled in
// arrival order until ctx is cancelled.
func (s *BotService) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.BotAPI.GetUpdatesChan(u)
	log.Println("INFO: Telegram polling started")

	for {
		select {
		case <-ctx.Done():
			s.BotAPI.StopReceivingUpdates()
			log.Println("INFO: Telegram polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			s.HandleUpdate(ctx, update)
		}
	}
}
