package spelling

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Separator is the explicit syllable separator a user may type.
const Separator = '\''

// Fold maps input to the form the segmenter works on: NFKC, so full-width
// letters become ASCII, then lower case.
func Fold(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

// IsSeparatorOrSpace reports whether r separates two syllables.
func IsSeparatorOrSpace(r rune) bool {
	return r == Separator || unicode.IsSpace(r)
}

func isLetter(r rune) bool {
	return r >= 'a' && r <= 'z'
}

// FoldRunes folds every rune on its own so the result lines up with raw, one
// rune for one. A rune whose folded form is not a single rune is only lower-cased.
func FoldRunes(raw []rune) []rune {
	out := make([]rune, len(raw))
	for i, r := range raw {
		f := []rune(Fold(string(r)))
		if len(f) == 1 {
			out[i] = f[0]
		} else {
			out[i] = unicode.ToLower(r)
		}
	}
	return out
}
