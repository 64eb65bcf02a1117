package crawler

import "time"

// ListingRecord is one quote fragment as extracted from a listing page,
// before normalization.
type ListingRecord struct {
	Text      string
	Author    string
	AuthorURL string
	Tags      []string
}

// AuthorProfile carries the biographical fields persisted for an author.
// Name is the identity key.
type AuthorProfile struct {
	Name         string `json:"name"`
	BornDate     string `json:"born_date"`
	BornLocation string `json:"born_location"`
	Description  string `json:"description"`
}

// Response is the result returned by a Fetcher implementation.
type Response struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// StopReason explains why a crawl stopped paging.
type StopReason string

// Stop reasons reported in Stats.
const (
	StopNoRecords      StopReason = "no_records"
	StopPageStatus     StopReason = "page_status"
	StopTransportError StopReason = "transport_error"
	StopParseError     StopReason = "parse_error"
	StopMaxPages       StopReason = "max_pages"
	StopCanceled       StopReason = "canceled"
)

// Stats summarizes a single crawl.
type Stats struct {
	PagesProcessed   int        `json:"pages_processed"`
	LastPage         int        `json:"last_page"`
	RecordsSeen      int        `json:"records_seen"`
	RecordsPersisted int        `json:"records_persisted"`
	RecordsFailed    int        `json:"records_failed"`
	StopReason       StopReason `json:"stop_reason"`
}

// RunStatus represents the outcome of a whole run, including storage setup.
type RunStatus string

// Run status values.
const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// RunSummary is recorded for each run started by the CLI or scheduler.
type RunSummary struct {
	ID        string    `json:"id"`
	Status    RunStatus `json:"status"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	ErrorText string    `json:"error_text,omitempty"`
	Stats     Stats     `json:"stats"`
}
