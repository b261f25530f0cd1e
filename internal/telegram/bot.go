package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/suspectuso/earn-bot/internal/commands"
)

// Bot sends ledger replies and manages the webhook registration through the Bot API
type Bot struct {
	bot *bot.Bot
	log *slog.Logger
}

// New creates a Bot API client. Extra options are passed to the underlying bot,
// e.g. bot.WithServerURL for a local API server.
func New(token string, log *slog.Logger, opts ...bot.Option) (*Bot, error) {
	b := &Bot{log: log}

	opts = append([]bot.Option{
		bot.WithErrorsHandler(func(err error) {
			log.Error("telegram api", "error", err)
		}),
	}, opts...)

	tgBot, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	b.bot = tgBot
	return b, nil
}

// SendReply sends an HTML message; a non-empty menu is attached as an inline keyboard
func (b *Bot) SendReply(ctx context.Context, chatID int64, text string, menu commands.Menu) error {
	disablePreview := true
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
		LinkPreviewOptions: &models.LinkPreviewOptions{
			IsDisabled: &disablePreview,
		},
	}
	if keyboard := MenuKeyboard(menu); keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	if _, err := b.bot.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// AcknowledgeCallback answers a callback query so the client stops its spinner
func (b *Bot) AcknowledgeCallback(ctx context.Context, callbackID string) error {
	_, err := b.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
	})
	if err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

// --- Webhook ---

// SetWebhook registers url for message and callback updates
func (b *Bot) SetWebhook(ctx context.Context, url string) error {
	ok, err := b.bot.SetWebhook(ctx, &bot.SetWebhookParams{
		URL:            url,
		AllowedUpdates: []string{"message", "callback_query"},
	})
	if err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	if !ok {
		return fmt.Errorf("set webhook: rejected")
	}
	return nil
}

// DeleteWebhook removes the webhook registration
func (b *Bot) DeleteWebhook(ctx context.Context) error {
	ok, err := b.bot.DeleteWebhook(ctx, &bot.DeleteWebhookParams{})
	if err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	if !ok {
		return fmt.Errorf("delete webhook: rejected")
	}
	return nil
}

// WebhookInfo returns the current webhook registration
func (b *Bot) WebhookInfo(ctx context.Context) (*models.WebhookInfo, error) {
	info, err := b.bot.GetWebhookInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("get webhook info: %w", err)
	}
	return info, nil
}
