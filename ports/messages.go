package ports

import (
	"github.com/acmebet/gatekeeper/core"
	"golang.org/x/text/language"
)

// MessageSource maps error kinds to user-facing strings for a language tag.
// It is an explicit collaborator, not process-wide state; unknown tags fall
// back to English.
type MessageSource interface {
	Message(tag language.Tag, kind core.Kind) string
}
