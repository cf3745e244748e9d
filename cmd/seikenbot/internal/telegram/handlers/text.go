package handlers

import (
	"context"

	"go.uber.org/zap"
	"gopkg.in/telebot.v3"

	"seikenbot/cmd/seikenbot/internal/telegram/messages"
	"seikenbot/pkg/dispatch"
	"seikenbot/pkg/entities"
)

var helpKeywords = []string{"ayuda"}

func (env *Environment) echo(_ context.Context, ev entities.Event) error {
	return env.reply(ev, ev.Text)
}

// moderate removes the message and scolds its author. The scolding is not a reply
// because the original message no longer exists.
func (env *Environment) moderate(_ context.Context, ev entities.Event) error {
	if err := env.Client.DeleteMessage(ev.Chat.ID, ev.MessageID); err != nil {
		return err
	}
	env.Logger.Info("Message removed by moderation",
		zap.Int64("chat_id", ev.Chat.ID),
		zap.Int("message_id", ev.MessageID),
		zap.Int64("sender_id", ev.Sender.ID),
	)
	scolding := messages.Scolding(ev.Sender.ID, ev.Sender.DisplayName())
	if err := env.Client.SendText(ev.Chat.ID, 0, scolding, telebot.ModeHTML); err != nil {
		return err
	}
	return dispatch.ErrStopPropagation
}

func (env *Environment) groupMentionOrHelp(_ context.Context, ev entities.Event) error {
	if !ev.Chat.Kind.IsGroup() {
		return nil
	}
	switch {
	case dispatch.MentionsUser(ev, env.BotUsername):
		return env.reply(ev, messages.MentionReply)
	case dispatch.ContainsAnyWordFold(ev.Text, helpKeywords):
		return env.reply(ev, messages.AyudaReply)
	default:
		return nil
	}
}
