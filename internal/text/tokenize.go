package text

import "strings"

var syntaxMarks = strings.NewReplacer(
	",", " ",
	".", " ",
	"!", " ",
	"?", " ",
	"-", " ",
)

// Tokenize splits text into lower-cased words. Order and duplicates are kept.
func Tokenize(s string) []string {
	return strings.Fields(strings.ToLower(syntaxMarks.Replace(s)))
}

// WordInWords reports whether some word starts with prefix.
func WordInWords(prefix string, words []string) bool {
	for _, w := range words {
		if strings.HasPrefix(w, prefix) {
			return true
		}
	}
	return false
}

// MatchesAll reports whether every query word is a prefix of at least one
// candidate word. An empty query matches anything.
func MatchesAll(query, words []string) bool {
	for _, q := range query {
		if !WordInWords(q, words) {
			return false
		}
	}
	return true
}
