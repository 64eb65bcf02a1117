// Package postgres implements the storage gateway on a single pgx connection.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/JakeFAU/quotes-crawler/internal/crawler"
	"github.com/JakeFAU/quotes-crawler/internal/metrics"
)

//go:embed schema.sql
var schemaSQL string

const uniqueViolation = "23505"

const (
	selectAuthorSQL   = `SELECT id FROM authors WHERE name = $1`
	insertAuthorSQL   = `INSERT INTO authors (name, born_date, born_location, description) VALUES ($1, $2, $3, $4) RETURNING id`
	selectTagSQL      = `SELECT id FROM tags WHERE tag = $1`
	insertTagSQL      = `INSERT INTO tags (tag) VALUES ($1) RETURNING id`
	insertQuoteSQL    = `INSERT INTO quotes (author_id, quote) VALUES ($1, $2) RETURNING id`
	insertQuoteTagSQL = `INSERT INTO quote_tags (quote_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
)

// Config describes how to reach the database.
type Config struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	ConnectTimeout time.Duration
	// EnsureSchema applies the bootstrap CREATE TABLE IF NOT EXISTS statements after connecting.
	EnsureSchema bool
}

// DSN renders the connection string understood by pgx.
func (c Config) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else if c.User != "" {
		u.User = url.User(c.User)
	}
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	if c.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(c.ConnectTimeout.Seconds())))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// conn is the subset of *pgx.Conn used by the gateway.
type conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Gateway owns one database connection for the duration of a run. Every
// statement runs outside an explicit transaction and commits on its own.
type Gateway struct {
	conn   conn
	logger *zap.Logger
}

// Open connects, pings, and optionally bootstraps the schema. Any failure
// wraps crawler.ErrConnection.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Gateway, error) {
	pgCfg, err := pgx.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: parse postgres dsn: %w", crawler.ErrConnection, err)
	}
	c, err := pgx.ConnectConfig(ctx, pgCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: connect postgres %s: %w", crawler.ErrConnection, pgCfg.Host, err)
	}
	g := NewGatewayWithConn(c, logger)
	if err := g.init(ctx, cfg.EnsureSchema); err != nil {
		_ = c.Close(ctx)
		return nil, err
	}
	g.logger.Info("connected to database",
		zap.String("host", pgCfg.Host),
		zap.String("database", pgCfg.Database),
	)
	return g, nil
}

// NewGatewayWithConn constructs a gateway from an existing connection (primarily for testing).
func NewGatewayWithConn(c conn, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{conn: c, logger: logger.Named("postgres")}
}

func (g *Gateway) init(ctx context.Context, ensureSchema bool) error {
	if err := g.conn.Ping(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", crawler.ErrConnection, err)
	}
	if !ensureSchema {
		return nil
	}
	if _, err := g.conn.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("%w: ensure schema: %w", crawler.ErrConnection, err)
	}
	return nil
}

// Ping verifies the connection is alive.
func (g *Gateway) Ping(ctx context.Context) error {
	if err := g.conn.Ping(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", crawler.ErrConnection, err)
	}
	return nil
}

// Close releases the connection.
func (g *Gateway) Close(ctx context.Context) error {
	if g == nil || g.conn == nil {
		return nil
	}
	if err := g.conn.Close(ctx); err != nil {
		return fmt.Errorf("close postgres: %w", err)
	}
	return nil
}

// UpsertAuthor returns the id of the author with this exact name, inserting
// the full profile when none exists. Existing rows are not updated.
func (g *Gateway) UpsertAuthor(ctx context.Context, profile crawler.AuthorProfile) (int64, error) {
	return g.upsert(ctx, "author", selectAuthorSQL, profile.Name,
		insertAuthorSQL, profile.Name, profile.BornDate, profile.BornLocation, profile.Description)
}

// UpsertTag returns the id of the tag with this label, inserting it when none exists.
func (g *Gateway) UpsertTag(ctx context.Context, label string) (int64, error) {
	return g.upsert(ctx, "tag", selectTagSQL, label, insertTagSQL, label)
}

// InsertQuote always inserts a new quote row.
func (g *Gateway) InsertQuote(ctx context.Context, text string, authorID int64) (int64, error) {
	var id int64
	if err := g.conn.QueryRow(ctx, insertQuoteSQL, authorID, text).Scan(&id); err != nil {
		metrics.ObserveStore("quote", "error")
		return 0, fmt.Errorf("%w: insert quote: %w", crawler.ErrStorage, err)
	}
	metrics.ObserveStore("quote", "inserted")
	return id, nil
}

// InsertQuoteTag inserts the association. A pair that already exists is left as is.
func (g *Gateway) InsertQuoteTag(ctx context.Context, quoteID, tagID int64) error {
	tag, err := g.conn.Exec(ctx, insertQuoteTagSQL, quoteID, tagID)
	if err != nil {
		metrics.ObserveStore("quote_tag", "error")
		return fmt.Errorf("%w: insert quote tag: %w", crawler.ErrStorage, err)
	}
	if tag.RowsAffected() == 0 {
		metrics.ObserveStore("quote_tag", "existing")
		return nil
	}
	metrics.ObserveStore("quote_tag", "inserted")
	return nil
}

func (g *Gateway) upsert(
	ctx context.Context,
	entity, selectSQL string,
	key any,
	insertSQL string,
	insertArgs ...any,
) (int64, error) {
	id, err := g.lookup(ctx, selectSQL, key)
	if err == nil {
		metrics.ObserveStore(entity, "existing")
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		metrics.ObserveStore(entity, "error")
		return 0, fmt.Errorf("%w: select %s: %w", crawler.ErrStorage, entity, err)
	}

	err = g.conn.QueryRow(ctx, insertSQL, insertArgs...).Scan(&id)
	if err == nil {
		metrics.ObserveStore(entity, "inserted")
		return id, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		// Another writer inserted the row between our select and insert.
		g.logger.Warn("unique violation on insert; re-reading", zap.String("entity", entity))
		if id, lookupErr := g.lookup(ctx, selectSQL, key); lookupErr == nil {
			metrics.ObserveStore(entity, "existing")
			return id, nil
		}
	}
	metrics.ObserveStore(entity, "error")
	return 0, fmt.Errorf("%w: insert %s: %w", crawler.ErrStorage, entity, err)
}

func (g *Gateway) lookup(ctx context.Context, selectSQL string, key any) (int64, error) {
	var id int64
	if err := g.conn.QueryRow(ctx, selectSQL, key).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
