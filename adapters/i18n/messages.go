// Package i18n maps error kinds to user-facing strings per language tag. It
// is an explicit formatter passed to the transport layer, not process-wide
// state.
package i18n

import (
	"github.com/acmebet/gatekeeper/core"
	"github.com/acmebet/gatekeeper/ports"
	"golang.org/x/text/language"
)

var english = map[core.Kind]string{
	core.KindAlreadyExists:       "User already exists",
	core.KindCreationFailed:      "User could not be created",
	core.KindInvalidCredentials:  "Username or password is invalid",
	core.KindAddressMismatch:     "Sign wallet address is incorrect",
	core.KindSignatureInvalid:    "Sign wallet info is incorrect",
	core.KindRefreshTokenInvalid: "Refresh token is invalid",
	core.KindForbidden:           "Forbidden",
	core.KindUnauthorized:        "Unauthorized",
	core.KindConflict:            "Conflict",
	core.KindSomethingWentWrong:  "Something went wrong",
}

// Source resolves messages by language tag, falling back to English.
type Source struct {
	tables map[language.Tag]map[core.Kind]string
}

// NewSource creates a message source with the built-in English table.
func NewSource() *Source {
	return &Source{
		tables: map[language.Tag]map[core.Kind]string{
			language.English: english,
		},
	}
}

var _ ports.MessageSource = (*Source)(nil)

// Add registers or extends the table for a language tag.
func (s *Source) Add(tag language.Tag, table map[core.Kind]string) {
	existing, ok := s.tables[tag]
	if !ok {
		existing = make(map[core.Kind]string, len(table))
		s.tables[tag] = existing
	}
	for kind, msg := range table {
		existing[kind] = msg
	}
}

// Message returns the string for a kind in the closest registered language.
func (s *Source) Message(tag language.Tag, kind core.Kind) string {
	if table, ok := s.tables[tag]; ok {
		if msg, ok := table[kind]; ok {
			return msg
		}
	}
	if msg, ok := english[kind]; ok {
		return msg
	}
	return english[core.KindSomethingWentWrong]
}
