// Package preprocess turns raw story text into the candidate index shared by
// all extraction methods: cleaned sentences, proper-noun-like n-gram
// candidate sets and per-candidate capitalization statistics.
package preprocess

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	disallowedRe  = regexp.MustCompile(`[^\w\s.,!?;:'"-]`)
	repeatPunctRe = regexp.MustCompile(`([.!?]){2,}`)
)

// minSentenceLength drops fragments left over from segmentation.
const minSentenceLength = 10

// CleanText normalizes whitespace and strips characters that confuse the
// tokenizer, keeping sentence punctuation intact.
func CleanText(text string) string {
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = disallowedRe.ReplaceAllString(text, "")
	text = repeatPunctRe.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}

// SegmentSentences splits cleaned text into sentences on terminal
// punctuation. Sentence order is preserved; the slice index is the stable
// sentence identifier used throughout the pipeline.
func SegmentSentences(text string) []string {
	text = strings.ReplaceAll(text, "! ", "!|")
	text = strings.ReplaceAll(text, "? ", "?|")
	text = strings.ReplaceAll(text, ". ", ".|")

	parts := strings.Split(text, "|")
	var sentences []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len(p) > minSentenceLength {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

// Tokenize splits a sentence into word tokens, stripping surrounding
// punctuation but keeping internal apostrophes ("Della's").
func Tokenize(sentence string) []string {
	fields := strings.Fields(sentence)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		token := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// isAlphabetic reports whether every rune of the token is a letter or an
// apostrophe.
func isAlphabetic(token string) bool {
	for _, r := range token {
		if !unicode.IsLetter(r) && r != '\'' {
			return false
		}
	}
	return len(token) > 0
}

// isCapitalized reports whether the first rune is upper-case.
func isCapitalized(token string) bool {
	for _, r := range token {
		return unicode.IsUpper(r)
	}
	return false
}

// isAllUpper reports whether every letter of the token is upper-case.
// Fully upper-case tokens are treated as acronyms, not names.
func isAllUpper(token string) bool {
	hasLetter := false
	for _, r := range token {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

// titleCase normalizes a token for candidate comparison: first rune upper,
// rest lower.
func titleCase(token string) string {
	if token == "" {
		return token
	}
	runes := []rune(strings.ToLower(token))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
