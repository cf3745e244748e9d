package handlers

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"seikenbot/cmd/seikenbot/internal/telegram/messages"
	"seikenbot/pkg/clients"
	"seikenbot/pkg/entities"
)

func (env *Environment) startCmd(_ context.Context, ev entities.Event) error {
	return env.reply(ev, messages.Welcome(ev.Sender.DisplayName()))
}

func (env *Environment) helpCmd(_ context.Context, ev entities.Event) error {
	return env.replyHTML(ev, messages.HelpText)
}

func (env *Environment) chatCmd(_ context.Context, ev entities.Event) error {
	return env.replyHTML(ev, messages.ChatInfo(ev.Chat.ID, string(ev.Chat.Kind)))
}

// seikenedCmd looks up the profile given as the only argument and answers with its avatar.
func (env *Environment) seikenedCmd(ctx context.Context, ev entities.Event) error {
	_, _, args := ev.Command()
	if len(args) == 0 {
		return env.reply(ev, messages.ProfileUsage)
	}
	username := args[0]

	profile, err := env.Profiles.Profile(ctx, username)
	switch {
	case errors.Is(err, clients.ErrProfileNotFound):
		env.Logger.Debug("Profile not found", zap.String("username", username), zap.Error(err))
		return env.reply(ev, messages.ProfileNotFound(username))
	case err != nil:
		return errors.Wrapf(err, "failed to look up profile of '%s'", username)
	}

	caption := profile.DisplayName(username)
	if profile.AvatarURL == "" {
		return env.reply(ev, caption)
	}
	return env.Client.SendPhoto(ev.Chat.ID, ev.MessageID, profile.AvatarURL, caption)
}
