package prosody

import "regexp"

// Token is a whitespace-delimited word with its byte offsets into the
// (whitespace-normalized) source string. Offsets are half-open:
// End-Start == len(Text).
type Token struct {
	Text  string
	Start int
	End   int
}

var (
	wordRe     = regexp.MustCompile(`\S+`)
	nonWordRe  = regexp.MustCompile(`[^\p{L}\p{N}_]`)
	trailingRe = regexp.MustCompile(`[.,;:!?—…\-]+$`)
)

// Tokenize splits text into word tokens in document order. Runs of
// whitespace are excluded entirely; punctuation stays attached to its word.
// Empty or whitespace-only input yields no tokens; callers treat that as
// invalid input, not an empty result.
func Tokenize(text string) []Token {
	matches := wordRe.FindAllStringIndex(text, -1)
	tokens := make([]Token, 0, len(matches))
	for _, m := range matches {
		tokens = append(tokens, Token{Text: text[m[0]:m[1]], Start: m[0], End: m[1]})
	}
	return tokens
}

// StripPunctuation removes everything except letters, digits and underscore.
func StripPunctuation(word string) string {
	return nonWordRe.ReplaceAllString(word, "")
}

// TrailingPunctuation returns the first character of the trailing punctuation
// run of word, or 0 when the word has no trailing punctuation.
func TrailingPunctuation(word string) rune {
	m := trailingRe.FindString(word)
	if m == "" {
		return 0
	}
	return []rune(m)[0]
}

// PivotIndex returns the character index used as the visual fixation point
// for a punctuation-stripped word. RSVP readers fixate roughly a third of
// the way into the word; short words get fixed small-case targets.
func PivotIndex(word string) int {
	n := len([]rune(word))
	switch {
	case n <= 1:
		return 0
	case n <= 3:
		return 1
	case n <= 5:
		return 2
	default:
		return int(float64(n) * 0.33)
	}
}
