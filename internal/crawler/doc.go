// Package crawler walks the paginated quotes listing, extracts each quote
// record, enriches it with the author profile, and hands the result to the
// storage gateway in author, quote, tag order.
package crawler
