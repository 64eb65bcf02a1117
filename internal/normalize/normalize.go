// Package normalize cleans strings extracted from quote listing and author pages.
// Every function is total: any input, including the empty string, is accepted.
package normalize

import "strings"

// QuoteText removes the curly quote glyphs the site wraps quote text in, then
// surrounding whitespace.
func QuoteText(s string) string {
	return strings.TrimSpace(strings.Map(dropQuoteGlyph, s))
}

func dropQuoteGlyph(r rune) rune {
	if r == '“' || r == '”' {
		return -1
	}
	return r
}

// AuthorName trims surrounding whitespace. Case is preserved since author
// identity is case-sensitive.
func AuthorName(s string) string {
	return strings.TrimSpace(s)
}

// BornDate trims surrounding whitespace from the free-text birth date.
func BornDate(s string) string {
	return strings.TrimSpace(s)
}

// BornLocation trims surrounding whitespace from the free-text birth location.
func BornLocation(s string) string {
	return strings.TrimSpace(s)
}

// Tags trims and lower-cases each tag, preserving order. Duplicates are kept;
// the storage layer collapses them.
func Tags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, Tag(tag))
	}
	return out
}

// Tag normalizes a single tag label.
func Tag(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
