// Package schema maps raw column headers of NF-e exports to canonical names
// and resolves the logical fields the rest of the system reads.
package schema

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize turns a raw column header into its canonical name: diacritics
// removed, trimmed, upper-cased, with '/' and ' ' replaced by '_'.
// It never fails and Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	// marks go first: some letters only have an upper-case form once
	// their diacritic is removed
	s := raw
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(t, s); err == nil {
		s = stripped
	}
	return separators.Replace(strings.ToUpper(strings.TrimSpace(s)))
}

var separators = strings.NewReplacer("/", "_", " ", "_")
