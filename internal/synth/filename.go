package synth

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SecureFilename folds a user supplied file name into the form the backend
// stores uploads under (e.g., "Jiří Novák (1).png" -> "Jiri_Novak_1.png").
// The result may be empty when nothing ASCII survives.
func SecureFilename(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	name, _, _ = transform.String(t, name)

	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")

	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '_', r == '.', r == '-':
			return r
		default:
			return -1
		}
	}, name)

	return strings.Trim(name, "._")
}
