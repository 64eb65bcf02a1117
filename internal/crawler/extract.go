package crawler

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// Selectors for the listing and author pages.
const (
	quoteFragmentSelector = "div.quote"
	quoteTextSelector     = "span.text"
	quoteAuthorSelector   = "small.author"
	quoteTagSelector      = "a.tag"

	authorBornDateSelector     = "span.author-born-date"
	authorBornLocationSelector = "span.author-born-location"
	authorDescriptionSelector  = "div.author-description"
)

// ParseDocument parses an HTML body into a goquery document.
func ParseDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// QuoteFragments returns the quote fragments of a listing page in document order.
func QuoteFragments(doc *goquery.Document) []*goquery.Selection {
	var out []*goquery.Selection
	doc.Find(quoteFragmentSelector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, s)
	})
	return out
}

// ExtractRecord pulls the raw quote, author, author link and tags out of a
// single quote fragment. Values are returned as scraped; callers normalize.
func ExtractRecord(fragment *goquery.Selection, baseURL string) (ListingRecord, error) {
	text := fragment.Find(quoteTextSelector).First()
	if text.Length() == 0 {
		return ListingRecord{}, missingField(quoteTextSelector)
	}
	author := fragment.Find(quoteAuthorSelector).First()
	if author.Length() == 0 {
		return ListingRecord{}, missingField(quoteAuthorSelector)
	}
	anchor := fragment.Find("a").First()
	if anchor.Length() == 0 {
		return ListingRecord{}, missingField("a")
	}
	href, ok := anchor.Attr("href")
	if !ok {
		return ListingRecord{}, missingField("a[href]")
	}

	var tags []string
	fragment.Find(quoteTagSelector).Each(func(_ int, s *goquery.Selection) {
		tags = append(tags, s.Text())
	})

	return ListingRecord{
		Text:      text.Text(),
		Author:    author.Text(),
		AuthorURL: AuthorURL(baseURL, href),
		Tags:      tags,
	}, nil
}

func missingField(selector string) error {
	return fmt.Errorf("%w: missing %s", ErrExtraction, selector)
}
