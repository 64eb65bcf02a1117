package crawler

import (
	"context"
	"time"
)

// Fetcher issues a single GET and returns the status and body. Non-success
// statuses are returned as responses, not errors; errors are reserved for
// transport failures. Implementations must not retry.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Response, error)
}

// Store is the storage gateway. Authors and tags are upserted (looked up or
// inserted), quotes and associations are always inserted. Every call commits
// on its own.
type Store interface {
	UpsertAuthor(ctx context.Context, profile AuthorProfile) (int64, error)
	InsertQuote(ctx context.Context, text string, authorID int64) (int64, error)
	UpsertTag(ctx context.Context, label string) (int64, error)
	InsertQuoteTag(ctx context.Context, quoteID, tagID int64) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
