package pronunciation

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

var punctuation = strings.NewReplacer(".", "", ",", "", "!", "", "?", "")

// Normalize prepares an utterance for comparison: NFC, lower case, the
// punctuation marks . , ! ? removed wherever they occur, surrounding space
// trimmed.
func Normalize(text string) string {
	text = norm.NFC.String(strings.ToLower(text))
	return strings.TrimSpace(punctuation.Replace(text))
}

// runeTokens splits s into one token per code point so character-level
// alignment can reuse the word-level matcher.
func runeTokens(s string) []string {
	tokens := make([]string, 0, len(s))
	for _, r := range s {
		tokens = append(tokens, string(r))
	}
	return tokens
}
