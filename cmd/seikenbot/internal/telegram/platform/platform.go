package platform

import (
	"io"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/telebot.v3"
)

// Client is the set of outbound Telegram operations used by the handlers.
// A zero replyTo sends a message that does not reference any other message.
type Client interface {
	SendText(chatID int64, replyTo int, text string, mode telebot.ParseMode) error
	SendPhoto(chatID int64, replyTo int, photoURL, caption string) error
	DeleteMessage(chatID int64, messageID int) error
	DownloadFile(fileID string, w io.Writer) error
}

// Telebot implements Client on top of a telebot bot.
type Telebot struct {
	bot *telebot.Bot
}

func NewTelebot(bot *telebot.Bot) *Telebot {
	return &Telebot{bot: bot}
}

func sendOptions(chatID int64, replyTo int, mode telebot.ParseMode) *telebot.SendOptions {
	opts := &telebot.SendOptions{ParseMode: mode}
	if replyTo != 0 {
		opts.ReplyTo = &telebot.Message{ID: replyTo, Chat: &telebot.Chat{ID: chatID}}
	}
	return opts
}

func (t *Telebot) SendText(chatID int64, replyTo int, text string, mode telebot.ParseMode) error {
	_, err := t.bot.Send(telebot.ChatID(chatID), text, sendOptions(chatID, replyTo, mode))
	return errors.Wrapf(err, "failed to send text message to chat %d", chatID)
}

func (t *Telebot) SendPhoto(chatID int64, replyTo int, photoURL, caption string) error {
	photo := &telebot.Photo{File: telebot.FromURL(photoURL), Caption: caption}
	_, err := t.bot.Send(telebot.ChatID(chatID), photo, sendOptions(chatID, replyTo, telebot.ModeDefault))
	return errors.Wrapf(err, "failed to send photo to chat %d", chatID)
}

func (t *Telebot) DeleteMessage(chatID int64, messageID int) error {
	msg := &telebot.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: chatID}
	return errors.Wrapf(t.bot.Delete(msg), "failed to delete message %d in chat %d", messageID, chatID)
}

func (t *Telebot) DownloadFile(fileID string, w io.Writer) (err error) {
	rc, err := t.bot.File(&telebot.File{FileID: fileID})
	if err != nil {
		return errors.Wrapf(err, "failed to fetch file '%s'", fileID)
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = errors.Wrap(closeErr, "failed to close file stream")
		}
	}()
	if _, err := io.Copy(w, rc); err != nil {
		return errors.Wrapf(err, "failed to download file '%s'", fileID)
	}
	return nil
}
