package handlers

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"
	"gopkg.in/telebot.v3"

	"seikenbot/cmd/seikenbot/internal/telegram/messages"
	"seikenbot/cmd/seikenbot/internal/telegram/platform"
	"seikenbot/pkg/dispatch"
	"seikenbot/pkg/entities"
)

// Dispatch groups. Moderation runs first and stops propagation when it removes a message,
// so nothing later ever acts on deleted content.
const (
	GroupModeration = iota
	GroupCommands
	GroupEcho
	GroupVoice
)

const DefaultMaxVoiceDuration = 60 * time.Second

// DefaultForbiddenWords is the moderation list used when none is configured.
var DefaultForbiddenWords = []string{"idiota", "tonto", "estúpido", "imbécil"}

type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, format string) (string, error)
}

type ProfileLookup interface {
	Profile(ctx context.Context, username string) (entities.Profile, error)
}

// Environment holds the process wide collaborators shared by all handlers.
// It is built once at startup and is read-only afterwards.
type Environment struct {
	Client           platform.Client
	AllowList        dispatch.AllowList
	BotUsername      string
	ForbiddenWords   []string
	MaxVoiceDuration time.Duration
	Transcriber      Transcriber // nil disables transcription
	Profiles         ProfileLookup
	TempDir          string // empty means os.TempDir
	Logger           *zap.Logger
}

func InitHandlers(d *dispatch.Dispatcher, env *Environment) error {
	gate := func(next dispatch.HandlerFunc) dispatch.HandlerFunc {
		return dispatch.Gate(env.AllowList, env.rejectCmd, next)
	}
	command := func(name string) dispatch.Filter {
		return dispatch.Command(name, env.BotUsername)
	}

	bindings := []dispatch.Binding{
		{Group: GroupCommands, Name: "start", Filter: command("start"), Handler: gate(env.startCmd)},
		{Group: GroupCommands, Name: "help", Filter: command("help"), Handler: gate(env.helpCmd)},
		{Group: GroupCommands, Name: "chat", Filter: command("chat"), Handler: gate(env.chatCmd)},
		{Group: GroupCommands, Name: "seikened", Filter: command("seikened"), Handler: env.seikenedCmd},
		{Group: GroupCommands, Name: "group_mention_or_help", Filter: dispatch.Text, Handler: env.groupMentionOrHelp},
		{Group: GroupEcho, Name: "echo", Filter: dispatch.Text, Handler: gate(env.echo)},
		{Group: GroupVoice, Name: "transcribe", Filter: dispatch.Voice, Handler: gate(env.transcribe)},
	}
	if len(env.ForbiddenWords) > 0 {
		moderation := dispatch.Binding{
			Group:   GroupModeration,
			Name:    "moderation",
			Filter:  dispatch.ContainsAnyFold(env.ForbiddenWords),
			Handler: env.moderate,
		}
		bindings = append([]dispatch.Binding{moderation}, bindings...)
	} else {
		env.Logger.Warn("No forbidden words configured, moderation is disabled")
	}
	if env.Transcriber == nil {
		env.Logger.Warn("No transcriber configured, voice messages will not be transcribed")
	}
	for _, b := range bindings {
		if err := d.Register(b.Group, b.Name, b.Filter, b.Handler); err != nil {
			return err
		}
	}
	return nil
}

func (env *Environment) reply(ev entities.Event, text string) error {
	return env.Client.SendText(ev.Chat.ID, ev.MessageID, text, telebot.ModeDefault)
}

func (env *Environment) replyHTML(ev entities.Event, text string) error {
	return env.Client.SendText(ev.Chat.ID, ev.MessageID, text, telebot.ModeHTML)
}

func (env *Environment) rejectCmd(_ context.Context, ev entities.Event) error {
	env.Logger.Info("Rejected event from a user outside of the allow list",
		zap.Int("update_id", ev.UpdateID),
		zap.Int64("sender_id", ev.Sender.ID),
		zap.Int64("chat_id", ev.Chat.ID),
	)
	return env.reply(ev, messages.PermissionDenied)
}
