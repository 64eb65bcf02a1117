package crawler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/quotes-crawler/internal/normalize"
)

// ProfileFetcher retrieves and parses author detail pages.
type ProfileFetcher struct {
	fetcher Fetcher
}

// NewProfileFetcher wraps a Fetcher.
func NewProfileFetcher(fetcher Fetcher) *ProfileFetcher {
	return &ProfileFetcher{fetcher: fetcher}
}

// Fetch issues one GET for the author page and extracts the biographical
// fields. The name is taken from the listing record, not the page.
func (p *ProfileFetcher) Fetch(ctx context.Context, url, name string) (AuthorProfile, error) {
	resp, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return AuthorProfile{}, fmt.Errorf("%w: get %s: %w", ErrFetch, url, err)
	}
	if resp.StatusCode != http.StatusOK {
		return AuthorProfile{}, fmt.Errorf("%w: get %s: %w: status %d", ErrFetch, url, ErrTransport, resp.StatusCode)
	}
	doc, err := ParseDocument(resp.Body)
	if err != nil {
		return AuthorProfile{}, fmt.Errorf("%w: %s: %w: %w", ErrFetch, url, ErrExtraction, err)
	}
	profile, err := ExtractProfile(doc)
	if err != nil {
		return AuthorProfile{}, fmt.Errorf("%w: %s: %w", ErrFetch, url, err)
	}
	profile.Name = name
	return profile, nil
}

// ExtractProfile reads the born date, born location and description from an
// author page. All three are required.
func ExtractProfile(doc *goquery.Document) (AuthorProfile, error) {
	born := doc.Find(authorBornDateSelector).First()
	if born.Length() == 0 {
		return AuthorProfile{}, missingField(authorBornDateSelector)
	}
	location := doc.Find(authorBornLocationSelector).First()
	if location.Length() == 0 {
		return AuthorProfile{}, missingField(authorBornLocationSelector)
	}
	description := doc.Find(authorDescriptionSelector).First()
	if description.Length() == 0 {
		return AuthorProfile{}, missingField(authorDescriptionSelector)
	}
	return AuthorProfile{
		BornDate:     normalize.BornDate(born.Text()),
		BornLocation: normalize.BornLocation(location.Text()),
		Description:  strings.TrimSpace(description.Text()),
	}, nil
}
