package domain

import "strings"

const MaxNameLen = 36

// Participant is a self-declared identity, unique by name within one room.
// It is not a security principal.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewParticipant avoids raw literals in adapters and keeps construction obvious.
func NewParticipant(id, name string) *Participant {
	return &Participant{ID: id, Name: name}
}

// NormalizeName trims surrounding whitespace and caps the length at
// MaxNameLen runes, never splitting a multibyte character. An empty result
// means the caller must reject the message, not that a default applies.
func NormalizeName(raw string) string {
	name := strings.TrimSpace(raw)
	if runes := []rune(name); len(runes) > MaxNameLen {
		name = string(runes[:MaxNameLen])
	}
	return name
}
