package pipeline

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const maxTitleRunes = 120

var titleCaser = cases.Title(language.Und)

// NormalizeTitle cleans raw OCR output into a usable document title:
// Unicode is NFC-normalized, whitespace runs collapse to single spaces,
// all-caps output (a common OCR artifact) is retitled, and overlong results
// are truncated on a rune boundary.
func NormalizeTitle(raw string) string {
	text := norm.NFC.String(raw)
	text = strings.Join(strings.Fields(text), " ")
	if isAllUpper(text) {
		text = titleCaser.String(text)
	}
	runes := []rune(text)
	if len(runes) > maxTitleRunes {
		text = strings.TrimSpace(string(runes[:maxTitleRunes]))
	}
	return text
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}
