package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/quotes-crawler/internal/metrics"
	"github.com/JakeFAU/quotes-crawler/internal/normalize"
)

// Config holds the settings for a crawl session.
// This struct is decoupled from Viper, making the crawler
// easier to test independently.
type Config struct {
	BaseURL   string
	StartPage int
	// MaxPages bounds the crawl; 0 means follow pagination until it ends.
	MaxPages int
}

// Crawler drives pagination and the per-record pipeline. It is strictly
// sequential and not safe for concurrent Run calls.
type Crawler struct {
	cfg      Config
	fetcher  Fetcher
	profiles *ProfileFetcher
	store    Store
	logger   *zap.Logger
}

// New constructs a Crawler.
func New(cfg Config, fetcher Fetcher, store Store, logger *zap.Logger) *Crawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StartPage <= 0 {
		cfg.StartPage = 1
	}
	return &Crawler{
		cfg:      cfg,
		fetcher:  fetcher,
		profiles: NewProfileFetcher(fetcher),
		store:    store,
		logger:   logger,
	}
}

// Run crawls from the start page until a page yields no quotes, a page fetch
// fails, or ctx is done. Failures inside a record never stop the crawl.
func (c *Crawler) Run(ctx context.Context) Stats {
	var stats Stats
	c.logger.Info("crawl started", zap.String("base_url", c.cfg.BaseURL), zap.Int("start_page", c.cfg.StartPage))

	for page := c.cfg.StartPage; ; page++ {
		if ctx.Err() != nil {
			stats.StopReason = StopCanceled
			break
		}
		if c.cfg.MaxPages > 0 && stats.PagesProcessed >= c.cfg.MaxPages {
			stats.StopReason = StopMaxPages
			break
		}
		stats.LastPage = page
		reason, done := c.crawlPage(ctx, page, &stats)
		if done {
			stats.StopReason = reason
			break
		}
		stats.PagesProcessed++
	}

	c.logger.Info("crawl finished",
		zap.String("stop_reason", string(stats.StopReason)),
		zap.Int("pages", stats.PagesProcessed),
		zap.Int("records_persisted", stats.RecordsPersisted),
		zap.Int("records_failed", stats.RecordsFailed),
	)
	return stats
}

// crawlPage fetches and processes one listing page. It reports done=true with
// a reason when the crawl must stop.
func (c *Crawler) crawlPage(ctx context.Context, page int, stats *Stats) (StopReason, bool) {
	pageURL := ListingPageURL(c.cfg.BaseURL, page)
	logger := c.logger.With(zap.Int("page", page), zap.String("url", pageURL))

	resp, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return StopCanceled, true
		}
		logger.Error("listing page fetch failed", zap.Error(err))
		metrics.ObservePage("transport")
		return StopTransportError, true
	}
	logger.Debug("listing page fetched",
		zap.String("final_url", resp.URL),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", resp.Duration),
	)
	if resp.StatusCode != http.StatusOK {
		logger.Warn("listing page not found", zap.Int("status_code", resp.StatusCode))
		metrics.ObservePage("status")
		return StopPageStatus, true
	}

	doc, err := ParseDocument(resp.Body)
	if err != nil {
		logger.Error("listing page parse failed", zap.Error(err))
		metrics.ObservePage("parse")
		return StopParseError, true
	}

	fragments := QuoteFragments(doc)
	if len(fragments) == 0 {
		logger.Info("no more quotes; pagination finished")
		metrics.ObservePage("empty")
		return StopNoRecords, true
	}

	logger.Info("processing page", zap.Int("quotes", len(fragments)), zap.Duration("fetch_duration", resp.Duration))
	for i, fragment := range fragments {
		if ctx.Err() != nil {
			return StopCanceled, true
		}
		stats.RecordsSeen++
		if err := c.processRecord(ctx, fragment); err != nil {
			stats.RecordsFailed++
			logger.Error("quote processing failed",
				zap.Int("index", i),
				zap.String("stage", stageOf(err)),
				zap.Error(err),
			)
			metrics.ObserveRecord("failed", stageOf(err))
			continue
		}
		stats.RecordsPersisted++
		metrics.ObserveRecord("persisted", "")
	}

	logger.Info("page processed")
	metrics.ObservePage("processed")
	return "", false
}

// stageError tags a record failure with the pipeline step that produced it.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return fmt.Sprintf("%s: %v", e.stage, e.err) }

func (e *stageError) Unwrap() error { return e.err }

func stageOf(err error) string {
	var se *stageError
	if errors.As(err, &se) {
		return se.stage
	}
	return "unknown"
}

// Pipeline stages reported in logs and metrics.
const (
	stageExtract = "extract"
	stageProfile = "profile"
	stageAuthor  = "author"
	stageQuote   = "quote"
)

func (c *Crawler) processRecord(ctx context.Context, fragment *goquery.Selection) error {
	raw, err := ExtractRecord(fragment, c.cfg.BaseURL)
	if err != nil {
		return &stageError{stage: stageExtract, err: err}
	}

	text := normalize.QuoteText(raw.Text)
	name := normalize.AuthorName(raw.Author)
	tags := normalize.Tags(raw.Tags)

	profile, err := c.profiles.Fetch(ctx, raw.AuthorURL, name)
	if err != nil {
		return &stageError{stage: stageProfile, err: err}
	}

	return c.persistRecord(ctx, text, profile, tags)
}

// persistRecord writes author, quote, then tags. A later write is attempted
// only once the write it references has produced an id.
func (c *Crawler) persistRecord(ctx context.Context, text string, profile AuthorProfile, tags []string) error {
	authorID, err := c.store.UpsertAuthor(ctx, profile)
	if err != nil {
		return &stageError{stage: stageAuthor, err: err}
	}

	quoteID, err := c.store.InsertQuote(ctx, text, authorID)
	if err != nil {
		return &stageError{stage: stageQuote, err: err}
	}

	for _, tag := range tags {
		tagID, err := c.store.UpsertTag(ctx, tag)
		if err != nil {
			c.logger.Error("tag upsert failed", zap.String("tag", tag), zap.Int64("quote_id", quoteID), zap.Error(err))
			continue
		}
		if err := c.store.InsertQuoteTag(ctx, quoteID, tagID); err != nil {
			c.logger.Error("quote tag insert failed",
				zap.Int64("quote_id", quoteID),
				zap.Int64("tag_id", tagID),
				zap.Error(err),
			)
		}
	}
	return nil
}
