package handlers

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"seikenbot/cmd/seikenbot/internal/telegram/messages"
	"seikenbot/pkg/entities"
)

func (env *Environment) maxVoiceDuration() time.Duration {
	if env.MaxVoiceDuration > 0 {
		return env.MaxVoiceDuration
	}
	return DefaultMaxVoiceDuration
}

func (env *Environment) transcribe(ctx context.Context, ev entities.Event) error {
	if env.Transcriber == nil {
		return env.reply(ev, messages.TranscriptionUnavailable)
	}
	limit := env.maxVoiceDuration()
	if ev.Voice.Duration > limit {
		return env.reply(ev, messages.VoiceTooLong(int(limit/time.Second)))
	}

	format := audioFormat(ev.Voice.MIME)
	text, err := env.transcribeVoiceFile(ctx, ev.Voice.FileID, format)
	if err != nil {
		return err
	}
	if text == "" {
		return env.reply(ev, messages.TranscriptionEmpty)
	}
	return env.reply(ev, messages.TranscriptionPrefix+text)
}

// transcribeVoiceFile downloads the voice file into a temporary file and transcribes it.
// The temporary file is removed before returning, whatever the outcome.
func (env *Environment) transcribeVoiceFile(ctx context.Context, fileID, format string) (string, error) {
	f, err := os.CreateTemp(env.TempDir, "voice-*."+format)
	if err != nil {
		return "", errors.Wrap(err, "failed to create temporary voice file")
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			env.Logger.Warn("Failed to close temporary voice file", zap.String("path", f.Name()), zap.Error(closeErr))
		}
		if rmErr := os.Remove(f.Name()); rmErr != nil {
			env.Logger.Error("Failed to remove temporary voice file", zap.String("path", f.Name()), zap.Error(rmErr))
		}
	}()

	if err := env.Client.DownloadFile(fileID, f); err != nil {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", errors.Wrap(err, "failed to rewind temporary voice file")
	}
	text, err := env.Transcriber.Transcribe(ctx, f, format)
	if err != nil {
		return "", errors.Wrap(err, "failed to transcribe voice message")
	}
	return strings.TrimSpace(text), nil
}

func audioFormat(mime string) string {
	switch strings.ToLower(mime) {
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return "m4a"
	case "audio/wav", "audio/x-wav":
		return "wav"
	case "audio/webm":
		return "webm"
	default: // Telegram voice notes are OGG/Opus
		return "ogg"
	}
}
