package search

import (
	"fmt"

	"golang.org/x/text/language"

	"github.com/couchcryptid/location-search/internal/domain"
)

// Notification is the payload of an OnError callback.
type Notification struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

const notificationMessage = "message"

// Messages holds the user facing prefixes that distinguish search failures
// from resolution failures.
type Messages struct {
	SearchFailed string
	LoadFailed   string
}

// Built-in message tables.
var (
	MessagesPortuguese = Messages{
		SearchFailed: "Falha ao buscar localização",
		LoadFailed:   "Falha ao carregar localização",
	}
	MessagesEnglish = Messages{
		SearchFailed: "Failed to search location",
		LoadFailed:   "Failed to load location",
	}
)

// Portuguese first: it is the fallback for unmatched locales.
var (
	supportedLocales = []language.Tag{language.Portuguese, language.English}
	localeMatcher    = language.NewMatcher(supportedLocales)
	messageTables    = []Messages{MessagesPortuguese, MessagesEnglish}
)

// MessagesFor picks the closest built-in table for a BCP 47 locale such as
// "pt-BR" or "en". Unparseable locales are an error; unsupported ones fall
// back to Portuguese.
func MessagesFor(locale string) (Messages, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return Messages{}, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	_, idx, _ := localeMatcher.Match(tag)
	return messageTables[idx], nil
}

func (m Messages) notification(prefix string, err error) Notification {
	return Notification{
		Type:  notificationMessage,
		Error: prefix + " - " + domain.UpstreamMessage(err),
	}
}
