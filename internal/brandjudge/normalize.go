package brandjudge

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeBrand canonicalizes a model-produced brand name for judging:
// lowercased, diacritics stripped, whitespace collapsed. Vision models
// return brand names with inconsistent casing and accents ("Nestlé",
// "  PAYPAL "), and the judge prompt should always see the same form.
func NormalizeBrand(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = removeAccents(s)
	return strings.Join(strings.Fields(s), " ")
}

// removeAccents strips diacritical marks from a string.
func removeAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}
