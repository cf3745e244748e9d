package config

import (
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/telebot.v3"

	"seikenbot/pkg/entities"
)

const defaultTelegramHTTPClientTimeout = 15 * time.Second

// WebhookAPI is the part of the Telegram API used to manage the webhook registration.
type WebhookAPI interface {
	Webhook() (*telebot.Webhook, error)
	SetWebhook(w *telebot.Webhook) error
	RemoveWebhook(dropPending ...bool) error
}

// NewBot creates a bot client and resolves the bot's own profile with getMe.
// The bot is never started: updates are received by the webhook endpoint.
func NewBot(botToken string, timeout time.Duration) (*telebot.Bot, error) {
	if timeout <= 0 {
		timeout = defaultTelegramHTTPClientTimeout
	}
	bot, err := telebot.NewBot(telebot.Settings{
		Token:  botToken,
		Client: &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create telegram bot")
	}
	return bot, nil
}

// WebhookURL joins the public base URL and the webhook path.
func WebhookURL(publicURL, path string) string {
	return strings.TrimRight(publicURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// RegisterWebhook makes Telegram deliver updates to webhookURL.
// A webhook already registered for another URL is an error unless deleteExisting is set.
func RegisterWebhook(api WebhookAPI, webhookURL, secretToken string, deleteExisting bool, logger *zap.Logger) error {
	existingWebhook, getErr := getExistingWebhook(api, deleteExisting, logger)
	if getErr != nil {
		return errors.Wrap(getErr, "failed to get or clear existing webhook")
	}
	switch url := existingWebhook.Listen; {
	case url == "": // no webhook, set up a new one
	case url == webhookURL:
		logger.Info("Webhook is already registered, updating its settings", zap.String("url", url))
	default:
		return errors.Errorf("webhook is already set up for URL '%s'", url)
	}
	newWebhook := &telebot.Webhook{
		SecretToken:    secretToken,
		AllowedUpdates: []string{"message"},
		Endpoint:       &telebot.WebhookEndpoint{PublicURL: webhookURL},
	}
	if setErr := api.SetWebhook(newWebhook); setErr != nil {
		return errors.Wrapf(setErr, "failed to set new webhook for URL '%s'", webhookURL)
	}
	logger.Info("Webhook successfully registered", zap.String("url", webhookURL))
	return nil
}

func getExistingWebhook(api WebhookAPI, deleteWebhook bool, logger *zap.Logger) (*telebot.Webhook, error) {
	existingWebhook, err := api.Webhook()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get webhook info from telegram API")
	}
	if deleteWebhook && existingWebhook.Listen != "" {
		if removeErr := api.RemoveWebhook(); removeErr != nil {
			return nil, errors.Wrapf(removeErr, "failed to remove webhook for URL '%s'", existingWebhook.Listen)
		}
		logger.Info("Existing webhook successfully deleted", zap.String("url", existingWebhook.Listen))
		return &telebot.Webhook{}, nil // no webhook exists since removal
	}
	return existingWebhook, nil
}

func DeregisterWebhook(api WebhookAPI, logger *zap.Logger) error {
	if err := api.RemoveWebhook(); err != nil {
		return errors.Wrap(err, "failed to remove webhook")
	}
	logger.Info("Webhook successfully removed")
	return nil
}

// NewOnErrorHandler returns a function which logs handler failures for an event.
func NewOnErrorHandler(logger *zap.Logger) func(error, entities.Event) {
	return func(err error, ev entities.Event) {
		logger.Error("Unknown error has been occurred in a bot handler",
			zap.Int("update_id", ev.UpdateID),
			zap.Int("message_id", ev.MessageID),
			zap.String("message_text", ev.Text), // log injection here is possible, but we rely on telegram data correctness
			zap.Int64("chat_id", ev.Chat.ID),
			zap.Int64("sender_id", ev.Sender.ID),
			zap.String("sender_username", ev.Sender.Username),
			zap.Error(err),
		)
	}
}
