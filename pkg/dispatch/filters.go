package dispatch

import (
	"strings"

	"seikenbot/pkg/entities"
)

// Filter decides whether a binding applies to an event. Filters must be pure.
type Filter func(ev entities.Event) bool

func All(filters ...Filter) Filter {
	return func(ev entities.Event) bool {
		for _, f := range filters {
			if !f(ev) {
				return false
			}
		}
		return true
	}
}

func Not(f Filter) Filter {
	return func(ev entities.Event) bool { return !f(ev) }
}

// Text matches messages with text that is not a command.
func Text(ev entities.Event) bool {
	return ev.HasText() && !ev.IsCommand()
}

func Voice(ev entities.Event) bool {
	return ev.HasVoice()
}

// Command matches "/name" and "/name@botUsername" in any letter case.
// Commands addressed to another bot are not matched.
func Command(name, botUsername string) Filter {
	name = strings.ToLower(name)
	return func(ev entities.Event) bool {
		cmd, addressee, _ := ev.Command()
		if cmd != name {
			return false
		}
		return addressee == "" || strings.EqualFold(addressee, botUsername)
	}
}

func ChatKinds(kinds ...entities.ChatKind) Filter {
	return func(ev entities.Event) bool {
		for _, k := range kinds {
			if ev.Chat.Kind == k {
				return true
			}
		}
		return false
	}
}

// ContainsAnyFold matches messages, commands included, whose text contains any of the words, ignoring case.
func ContainsAnyFold(words []string) Filter {
	return func(ev entities.Event) bool {
		return ev.HasText() && ContainsAnyWordFold(ev.Text, words)
	}
}

// ContainsAnyWordFold reports whether text contains any non-empty word as a substring, ignoring case.
func ContainsAnyWordFold(text string, words []string) bool {
	lowered := strings.ToLower(text)
	for _, w := range words {
		if w == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

// MentionsUser reports whether one of the mention entities of the event
// refers exactly to "@username".
func MentionsUser(ev entities.Event, username string) bool {
	if username == "" {
		return false
	}
	target := "@" + username
	for _, en := range ev.Entities {
		if en.Kind == entities.EntityMention && ev.EntityText(en) == target {
			return true
		}
	}
	return false
}
