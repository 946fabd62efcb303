package rotation

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

var supportedLanguages = []language.Tag{
	language.English, // first entry is the fallback
	language.Czech,
	language.German,
}

var languageMatcher = language.NewMatcher(supportedLanguages)

type messageForms struct {
	singular    string // child name, date
	plural      string // joined names, date
	conjunction string
}

var formsByLanguage = map[language.Tag]messageForms{
	language.English: {
		singular:    "%s has been given a spot at daycare on %s.",
		plural:      "%s have been given spots at daycare on %s.",
		conjunction: " and ",
	},
	language.Czech: {
		singular:    "%s má přidělené místo ve školce na den %s.",
		plural:      "%s mají přidělené místo ve školce na den %s.",
		conjunction: " a ",
	},
	language.German: {
		singular:    "%s hat am %s einen Betreuungsplatz bekommen.",
		plural:      "%s haben am %s einen Betreuungsplatz bekommen.",
		conjunction: " und ",
	},
}

// AssignmentMessage composes the parent-facing message for one or more
// children getting a slot on a date, in the closest supported language to
// the parent's preference.
func AssignmentMessage(lang, date string, names []string) string {
	_, index := language.MatchStrings(languageMatcher, lang)
	forms := formsByLanguage[supportedLanguages[index]]

	if len(names) == 1 {
		return fmt.Sprintf(forms.singular, names[0], date)
	}
	return fmt.Sprintf(forms.plural, joinNames(names, forms.conjunction), date)
}

// joinNames lists names with commas and a language-appropriate final
// conjunction: "Anna, Ben and Carl".
func joinNames(names []string, conjunction string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + conjunction + names[len(names)-1]
}
