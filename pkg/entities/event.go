package entities

import (
	"strings"
	"time"
	"unicode/utf16"
)

const commandPrefix = "/"

type EntityKind string

const (
	EntityMention EntityKind = "mention"
	EntityCommand EntityKind = "bot_command"
)

// Entity is a marked fragment of a message text.
// Offset and Length are measured in UTF-16 code units, as Telegram sends them.
type Entity struct {
	Kind   EntityKind `json:"kind"`
	Offset int        `json:"offset"`
	Length int        `json:"length"`
}

type Voice struct {
	FileID   string        `json:"fileID"`
	Duration time.Duration `json:"duration"`
	MIME     string        `json:"mime,omitempty"`
	Size     int64         `json:"size,omitempty"`
}

// Event is a single received update in the bot's own terms.
// It is passed by value to handlers and must not be modified after construction.
type Event struct {
	UpdateID  int      `json:"updateID"`
	MessageID int      `json:"messageID"`
	Sender    User     `json:"sender"`
	Chat      Chat     `json:"chat"`
	Text      string   `json:"text,omitempty"`
	Voice     *Voice   `json:"voice,omitempty"`
	Entities  []Entity `json:"entities,omitempty"`
}

// HasText reports whether the message carries non-blank text.
func (e Event) HasText() bool {
	return strings.TrimSpace(e.Text) != ""
}

func (e Event) HasVoice() bool {
	return e.Voice != nil
}

// IsCommand reports whether the message text starts with the command prefix.
func (e Event) IsCommand() bool {
	return strings.HasPrefix(e.Text, commandPrefix)
}

// Command splits a command message into the command name, the bot username it is
// addressed to (if any) and the whitespace separated arguments.
// For "/Seikened@my_bot octocat" it returns ("seikened", "my_bot", ["octocat"]).
func (e Event) Command() (name, addressee string, args []string) {
	if !e.IsCommand() {
		return "", "", nil
	}
	fields := strings.Fields(strings.TrimPrefix(e.Text, commandPrefix))
	if len(fields) == 0 {
		return "", "", nil
	}
	name, addressee, _ = strings.Cut(fields[0], "@")
	return strings.ToLower(name), addressee, fields[1:]
}

// EntityText returns the part of the text covered by the entity.
// An out of range entity yields an empty string.
func (e Event) EntityText(en Entity) string {
	units := utf16.Encode([]rune(e.Text))
	end := en.Offset + en.Length
	if en.Offset < 0 || en.Length < 0 || end > len(units) {
		return ""
	}
	return string(utf16.Decode(units[en.Offset:end]))
}
