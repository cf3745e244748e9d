package entities

type ChatKind string

const (
	ChatPrivate    ChatKind = "private"
	ChatGroup      ChatKind = "group"
	ChatSuperGroup ChatKind = "supergroup"
	ChatChannel    ChatKind = "channel"
)

// IsGroup reports whether the chat is a group or a supergroup.
func (k ChatKind) IsGroup() bool {
	return k == ChatGroup || k == ChatSuperGroup
}

type Chat struct {
	ID   int64    `json:"id"`
	Kind ChatKind `json:"kind"`
}

type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName,omitempty"`
	Username  string `json:"username,omitempty"`
	IsBot     bool   `json:"isBot,omitempty"`
}

// DisplayName returns the first name of the user, or the username if the first name is empty.
func (u User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Username
}
