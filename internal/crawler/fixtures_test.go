package crawler_test

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/JakeFAU/quotes-crawler/internal/crawler"
)

type fixtureQuote struct {
	text   string
	author string
	slug   string
	tags   []string
	// raw, when set, is written verbatim instead of a well-formed fragment.
	raw string
}

func listingHTML(quotes ...fixtureQuote) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="container"><div class="col-md-8">`)
	for _, q := range quotes {
		if q.raw != "" {
			b.WriteString(q.raw)
			continue
		}
		fmt.Fprintf(&b, `<div class="quote" itemscope>`+
			`<span class="text" itemprop="text">“%s”</span>`+
			`<span>by <small class="author" itemprop="author">%s</small>`+
			` <a href="/author/%s">(about)</a></span><div class="tags">Tags:`,
			q.text, q.author, q.slug)
		for _, tag := range q.tags {
			fmt.Fprintf(&b, ` <a class="tag" href="/tag/%s/page/1/">%s</a>`, strings.ToLower(tag), tag)
		}
		b.WriteString(`</div></div>`)
	}
	b.WriteString(`<nav><ul class="pager"></ul></nav></div></div></body></html>`)
	return b.String()
}

func authorHTML(name, born, location, description string) string {
	return fmt.Sprintf(`<html><body><div class="author-details">`+
		`<h3 class="author-title">%s</h3>`+
		`<p><strong>Born:</strong> <span class="author-born-date">%s</span>`+
		` <span class="author-born-location">%s</span></p>`+
		`<div class="author-description">
        %s
    </div></div></body></html>`, name, born, location, description)
}

const emptyListingHTML = `<html><body><div class="col-md-8">No quotes found!</div></body></html>`

// mapFetcher serves canned responses and records every requested URL.
type mapFetcher struct {
	mu        sync.Mutex
	responses map[string]crawler.Response
	errs      map[string]error
	requested []string
}

func newMapFetcher() *mapFetcher {
	return &mapFetcher{
		responses: make(map[string]crawler.Response),
		errs:      make(map[string]error),
	}
}

func (f *mapFetcher) page(url, body string) {
	f.responses[url] = crawler.Response{URL: url, StatusCode: http.StatusOK, Body: []byte(body)}
}

func (f *mapFetcher) status(url string, code int) {
	f.responses[url] = crawler.Response{URL: url, StatusCode: code, Body: []byte("error")}
}

func (f *mapFetcher) Fetch(_ context.Context, url string) (crawler.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, url)
	if err, ok := f.errs[url]; ok {
		return crawler.Response{}, err
	}
	if resp, ok := f.responses[url]; ok {
		return resp, nil
	}
	return crawler.Response{URL: url, StatusCode: http.StatusNotFound}, nil
}

func (f *mapFetcher) wasRequested(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.requested {
		if u == url {
			return true
		}
	}
	return false
}
