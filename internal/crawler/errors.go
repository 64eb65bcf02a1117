package crawler

import "errors"

// Error classes. Concrete errors wrap one or more of these with %w so callers
// can branch with errors.Is.
var (
	// ErrConnection means storage could not be reached; the run aborts before crawling.
	ErrConnection = errors.New("storage connection failed")
	// ErrTransport means an HTTP fetch failed or returned a non-success status.
	ErrTransport = errors.New("transport failed")
	// ErrExtraction means the HTML did not have the expected structure.
	ErrExtraction = errors.New("extraction failed")
	// ErrFetch means an author profile could not be fetched or parsed.
	ErrFetch = errors.New("author profile fetch failed")
	// ErrStorage means a lookup or write failed.
	ErrStorage = errors.New("storage operation failed")
)
