// Package memory provides an in-memory storage gateway for development/testing.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/quotes-crawler/internal/crawler"
	"github.com/JakeFAU/quotes-crawler/internal/metrics"
)

// Author is a stored author row.
type Author struct {
	ID int64
	crawler.AuthorProfile
}

// Tag is a stored tag row.
type Tag struct {
	ID    int64
	Label string
}

// Quote is a stored quote row.
type Quote struct {
	ID       int64
	AuthorID int64
	Text     string
}

// QuoteTag is a stored association row.
type QuoteTag struct {
	QuoteID int64
	TagID   int64
}

type quoteTagKey struct {
	quoteID int64
	tagID   int64
}

// Store mirrors the Postgres gateway semantics over maps: authors and tags
// are keyed by their identity, quotes are always appended, and association
// rows are unique per (quote, tag).
type Store struct {
	mu sync.RWMutex

	authors      []Author
	authorByName map[string]int64
	tags         []Tag
	tagByLabel   map[string]int64
	quotes       []Quote
	quoteTags    []QuoteTag
	quoteTagSeen map[quoteTagKey]struct{}
	closed       bool
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		authorByName: make(map[string]int64),
		tagByLabel:   make(map[string]int64),
		quoteTagSeen: make(map[quoteTagKey]struct{}),
	}
}

// UpsertAuthor returns the id of the author with this exact name, inserting
// it on first sighting. Existing rows are never updated.
func (s *Store) UpsertAuthor(_ context.Context, profile crawler.AuthorProfile) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	if id, ok := s.authorByName[profile.Name]; ok {
		metrics.ObserveStore("author", "existing")
		return id, nil
	}
	id := int64(len(s.authors) + 1)
	s.authors = append(s.authors, Author{ID: id, AuthorProfile: profile})
	s.authorByName[profile.Name] = id
	metrics.ObserveStore("author", "inserted")
	return id, nil
}

// InsertQuote always appends a new quote row.
func (s *Store) InsertQuote(_ context.Context, text string, authorID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	if authorID <= 0 || authorID > int64(len(s.authors)) {
		metrics.ObserveStore("quote", "error")
		return 0, fmt.Errorf("%w: insert quote: author %d does not exist", crawler.ErrStorage, authorID)
	}
	id := int64(len(s.quotes) + 1)
	s.quotes = append(s.quotes, Quote{ID: id, AuthorID: authorID, Text: text})
	metrics.ObserveStore("quote", "inserted")
	return id, nil
}

// UpsertTag returns the id of the tag with this label, inserting it on first sighting.
func (s *Store) UpsertTag(_ context.Context, label string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	if id, ok := s.tagByLabel[label]; ok {
		metrics.ObserveStore("tag", "existing")
		return id, nil
	}
	id := int64(len(s.tags) + 1)
	s.tags = append(s.tags, Tag{ID: id, Label: label})
	s.tagByLabel[label] = id
	metrics.ObserveStore("tag", "inserted")
	return id, nil
}

// InsertQuoteTag records the association. A repeated pair is ignored.
func (s *Store) InsertQuoteTag(_ context.Context, quoteID, tagID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	if quoteID <= 0 || quoteID > int64(len(s.quotes)) {
		return fmt.Errorf("%w: insert quote tag: quote %d does not exist", crawler.ErrStorage, quoteID)
	}
	if tagID <= 0 || tagID > int64(len(s.tags)) {
		return fmt.Errorf("%w: insert quote tag: tag %d does not exist", crawler.ErrStorage, tagID)
	}
	key := quoteTagKey{quoteID: quoteID, tagID: tagID}
	if _, ok := s.quoteTagSeen[key]; ok {
		metrics.ObserveStore("quote_tag", "existing")
		return nil
	}
	s.quoteTagSeen[key] = struct{}{}
	s.quoteTags = append(s.quoteTags, QuoteTag{QuoteID: quoteID, TagID: tagID})
	metrics.ObserveStore("quote_tag", "inserted")
	return nil
}

// Close marks the store closed; later calls fail.
func (s *Store) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) checkOpen() error {
	if s.closed {
		return fmt.Errorf("%w: store is closed", crawler.ErrStorage)
	}
	return nil
}

// Authors returns a copy of all author rows.
func (s *Store) Authors() []Author {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Author(nil), s.authors...)
}

// Tags returns a copy of all tag rows.
func (s *Store) Tags() []Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Tag(nil), s.tags...)
}

// Quotes returns a copy of all quote rows.
func (s *Store) Quotes() []Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Quote(nil), s.quotes...)
}

// QuoteTags returns a copy of all association rows.
func (s *Store) QuoteTags() []QuoteTag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]QuoteTag(nil), s.quoteTags...)
}
