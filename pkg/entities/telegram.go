package entities

import (
	"time"

	"gopkg.in/telebot.v3"
)

// EventFromUpdate converts a Telegram update into an Event.
// Only new messages are converted; for any other update kind ok is false.
func EventFromUpdate(u telebot.Update) (ev Event, ok bool) {
	msg := u.Message
	if msg == nil {
		return Event{}, false
	}
	ev = Event{
		UpdateID:  u.ID,
		MessageID: msg.ID,
		Text:      msg.Text,
	}
	if sender := msg.Sender; sender != nil {
		ev.Sender = User{
			ID:        sender.ID,
			FirstName: sender.FirstName,
			Username:  sender.Username,
			IsBot:     sender.IsBot,
		}
	}
	if chat := msg.Chat; chat != nil {
		ev.Chat = Chat{ID: chat.ID, Kind: ChatKind(chat.Type)}
	}
	if v := msg.Voice; v != nil {
		ev.Voice = &Voice{
			FileID:   v.FileID,
			Duration: time.Duration(v.Duration) * time.Second,
			MIME:     v.MIME,
			Size:     v.FileSize,
		}
	}
	if len(msg.Entities) > 0 {
		ev.Entities = make([]Entity, 0, len(msg.Entities))
		for _, en := range msg.Entities {
			ev.Entities = append(ev.Entities, Entity{
				Kind:   EntityKind(en.Type),
				Offset: en.Offset,
				Length: en.Length,
			})
		}
	}
	return ev, true
}
