package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeBaseURL validates the site base URL and strips any trailing slash
// so paths can be appended by concatenation.
func NormalizeBaseURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("base url %q must use http or https", rawURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("base url %q has no host", rawURL)
	}

	// Lowercase scheme and host
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	// Remove fragment and query
	u.Fragment = ""
	u.RawQuery = ""

	return strings.TrimRight(u.String(), "/"), nil
}

// ListingPageURL returns the URL of the nth listing page.
func ListingPageURL(base string, page int) string {
	return fmt.Sprintf("%s/page/%d/", strings.TrimRight(base, "/"), page)
}

// AuthorURL builds the absolute author page URL from the fragment's relative
// href by plain concatenation with the base.
func AuthorURL(base, href string) string {
	base = strings.TrimRight(base, "/")
	if href != "" && !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return base + href
}
