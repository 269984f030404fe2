package deduplication

import (
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// asciiPunctuation is the 32-character ASCII punctuation set. Full-width and
// CJK punctuation are kept.
const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

var noiseTable = func() (table [utf8.RuneSelf]bool) {
	for i := 0; i < len(asciiPunctuation); i++ {
		table[asciiPunctuation[i]] = true
	}
	table['\n'] = true
	return table
}()

func isNoise(r rune) bool {
	return r < utf8.RuneSelf && noiseTable[r]
}

// Normalize strips ASCII punctuation and newline characters from text and
// leaves everything else, including casing, untouched.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	out, _, _ := transform.String(runes.Remove(runes.Predicate(isNoise)), text)
	return out
}
