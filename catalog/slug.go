package catalog

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// toKebab lower-cases s and collapses every run of characters that are not
// ASCII letters or digits into a single dash.
func toKebab(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))

	lastDash := false
	for _, r := range s {
		switch {
		case r <= unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(unicode.ToLower(r))
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	return strings.Trim(b.String(), "-")
}

// productSlug builds the unique slug of a new product: name-shop-unixseconds.
func productSlug(name string, shopID int64, now time.Time) string {
	parts := []string{}
	if base := toKebab(name); base != "" {
		parts = append(parts, base)
	}
	parts = append(parts, strconv.FormatInt(shopID, 10), strconv.FormatInt(now.Unix(), 10))
	return strings.Join(parts, "-")
}
