package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const combiningTilde = '\u0303'

// isStrippable reports whether r is one of the diacritics Normalize folds away.
func isStrippable(r rune) bool {
	return r >= '\u0300' && r <= '\u036f'
}

// isMark covers every combining rune, so runs are split on real base
// characters only, whatever block their marks come from.
func isMark(r rune) bool {
	return unicode.Is(unicode.M, r)
}

// Normalize folds accents, commas and case so that triggers and incoming
// messages compare equal. A lone combining tilde after "n" survives, so "ñ"
// stays distinct from "n". Marks outside the combining diacritics block are
// kept, and so are marks with no base character before them.
func Normalize(s string) string {
	runes := []rune(norm.NFD.String(s))
	out := make([]rune, 0, len(runes))

	i := 0
	for i < len(runes) && isMark(runes[i]) {
		out = append(out, runes[i])
		i++
	}

	for i < len(runes) {
		base := runes[i]
		out = append(out, base)
		i++

		end := i
		strippable := 0
		for end < len(runes) && isMark(runes[end]) {
			if isStrippable(runes[end]) {
				strippable++
			}
			end++
		}

		keepTilde := (base == 'n' || base == 'N') && strippable == 1
		for _, r := range runes[i:end] {
			if !isStrippable(r) || (keepTilde && r == combiningTilde) {
				out = append(out, r)
			}
		}
		i = end
	}

	s = norm.NFC.String(string(out))
	s = strings.ReplaceAll(s, ",", "")
	// comma removal and case folding can leave marks out of canonical order
	return norm.NFC.String(strings.ToLower(s))
}

// Key is the lookup form of a trigger or message: Normalize with surrounding
// whitespace removed.
func Key(s string) string {
	return strings.TrimSpace(Normalize(s))
}
