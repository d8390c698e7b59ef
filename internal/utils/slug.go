package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	slugStrip    = regexp.MustCompile(`[^\w\s-]`)
	slugCollapse = regexp.MustCompile(`[-\s]+`)
)

// Slugify converts a product name into a folder-safe slug:
// "Pacific Pulse Zero!" -> "pacific-pulse-zero", "Café Noir" -> "cafe-noir"
func Slugify(value string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, err := transform.String(t, value)
	if err != nil {
		ascii = value
	}

	// Drop anything that is still outside ASCII after decomposition
	ascii = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, ascii)

	slug := slugStrip.ReplaceAllString(strings.ToLower(ascii), "")
	slug = slugCollapse.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-_")
}

// DefaultProductSlug names the folder of a product whose name has no
// ASCII letters or digits left after slugifying
const DefaultProductSlug = "product"

// ProductSlug is Slugify with DefaultProductSlug for names that slugify to ""
func ProductSlug(name string) string {
	if slug := Slugify(name); slug != "" {
		return slug
	}
	return DefaultProductSlug
}
