package dispatch

import (
	"context"

	"seikenbot/pkg/entities"
)

// AllowList is the pair of identities permitted to use gated handlers.
type AllowList struct {
	UserID int64
	ChatID int64
}

// Allows reports whether the event comes from the allowed user or from the allowed chat.
// A zero identity never matches.
func (a AllowList) Allows(ev entities.Event) bool {
	userAllowed := a.UserID != 0 && ev.Sender.ID == a.UserID
	chatAllowed := a.ChatID != 0 && ev.Chat.ID == a.ChatID
	return userAllowed || chatAllowed
}

// Gate wraps next so that it only runs for allowed events. Any other event is passed to reject.
func Gate(allow AllowList, reject, next HandlerFunc) HandlerFunc {
	return func(ctx context.Context, ev entities.Event) error {
		if !allow.Allows(ev) {
			return reject(ctx, ev)
		}
		return next(ctx, ev)
	}
}
