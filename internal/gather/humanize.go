package gather

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// fallbackTitle heads a fragment whose name has no letters or digits.
const fallbackTitle = "Additional Notes"

// Humanize turns a fragment file name into a section title:
// "design-review.md" becomes "Design Review". Punctuation other than word
// separators is dropped.
func Humanize(name string) string {
	words := strings.FieldsFunc(FragmentKey(name), func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_' || r == '.'
	})
	kept := words[:0]
	for _, word := range words {
		word = strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsNumber(r) {
				return r
			}
			return -1
		}, word)
		if word != "" {
			kept = append(kept, word)
		}
	}
	if len(kept) == 0 {
		return fallbackTitle
	}
	return cases.Title(language.English).String(strings.Join(kept, " "))
}

// FragmentKey is the lowercased base name of a fragment without its
// extension. Sections with a standard key get fixed titles and ordering.
func FragmentKey(name string) string {
	base := filepath.Base(name)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}
