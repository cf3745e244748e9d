package config

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/telebot.v3"

	"seikenbot/pkg/entities"
)

type fakeWebhookAPI struct {
	current   *telebot.Webhook
	set       []*telebot.Webhook
	removed   int
	getErr    error
	setErr    error
	removeErr error
}

func (f *fakeWebhookAPI) Webhook() (*telebot.Webhook, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.current, nil
}

func (f *fakeWebhookAPI) SetWebhook(w *telebot.Webhook) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.set = append(f.set, w)
	f.current = &telebot.Webhook{Listen: w.Endpoint.PublicURL}
	return nil
}

func (f *fakeWebhookAPI) RemoveWebhook(...bool) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed++
	f.current = &telebot.Webhook{}
	return nil
}

const hookURL = "https://bot.example.com/telegram"

func TestWebhookURL(t *testing.T) {
	assert.Equal(t, "https://bot.example.com/", WebhookURL("https://bot.example.com", "/"))
	assert.Equal(t, hookURL, WebhookURL("https://bot.example.com/", "/telegram"))
	assert.Equal(t, hookURL, WebhookURL("https://bot.example.com", "telegram"))
}

func TestRegisterWebhookWhenNoneExists(t *testing.T) {
	api := &fakeWebhookAPI{current: &telebot.Webhook{}}
	require.NoError(t, RegisterWebhook(api, hookURL, "s3cr3t", false, zaptest.NewLogger(t)))

	require.Len(t, api.set, 1)
	assert.Equal(t, hookURL, api.set[0].Endpoint.PublicURL)
	assert.Equal(t, "s3cr3t", api.set[0].SecretToken)
	assert.Equal(t, []string{"message"}, api.set[0].AllowedUpdates)
	assert.Zero(t, api.removed)
}

func TestRegisterWebhookSameURL(t *testing.T) {
	api := &fakeWebhookAPI{current: &telebot.Webhook{Listen: hookURL}}
	require.NoError(t, RegisterWebhook(api, hookURL, "", false, zaptest.NewLogger(t)))
	assert.Len(t, api.set, 1)
}

func TestRegisterWebhookConflict(t *testing.T) {
	api := &fakeWebhookAPI{current: &telebot.Webhook{Listen: "https://other.example.com/"}}
	err := RegisterWebhook(api, hookURL, "", false, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "https://other.example.com/")
	assert.Empty(t, api.set)
}

func TestRegisterWebhookDeletesExisting(t *testing.T) {
	api := &fakeWebhookAPI{current: &telebot.Webhook{Listen: "https://other.example.com/"}}
	require.NoError(t, RegisterWebhook(api, hookURL, "", true, zaptest.NewLogger(t)))
	assert.Equal(t, 1, api.removed)
	require.Len(t, api.set, 1)
	assert.Equal(t, hookURL, api.current.Listen)
}

func TestRegisterWebhookErrors(t *testing.T) {
	api := &fakeWebhookAPI{getErr: errors.New("unauthorized")}
	assert.Error(t, RegisterWebhook(api, hookURL, "", false, zaptest.NewLogger(t)))

	api = &fakeWebhookAPI{current: &telebot.Webhook{}, setErr: errors.New("bad webhook: HTTPS url must be provided")}
	err := RegisterWebhook(api, hookURL, "", false, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTPS url must be provided")

	api = &fakeWebhookAPI{current: &telebot.Webhook{Listen: "https://x/"}, removeErr: errors.New("boom")}
	err = RegisterWebhook(api, hookURL, "", true, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestDeregisterWebhook(t *testing.T) {
	api := &fakeWebhookAPI{current: &telebot.Webhook{Listen: hookURL}}
	require.NoError(t, DeregisterWebhook(api, zaptest.NewLogger(t)))
	assert.Equal(t, 1, api.removed)

	api.removeErr = errors.New("boom")
	assert.Error(t, DeregisterWebhook(api, zaptest.NewLogger(t)))
}

func TestOnErrorHandlerLogsEvent(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	onError := NewOnErrorHandler(zap.New(core))

	onError(errors.New("boom"), entities.Event{
		UpdateID:  42,
		MessageID: 7,
		Text:      "idiota",
		Chat:      entities.Chat{ID: -5},
		Sender:    entities.User{ID: 1, Username: "ana_dev"},
	})

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.EqualValues(t, 42, fields["update_id"])
	assert.EqualValues(t, 7, fields["message_id"])
	assert.EqualValues(t, -5, fields["chat_id"])
	assert.Equal(t, "ana_dev", fields["sender_username"])
	assert.Equal(t, "boom", fields["error"])
}
