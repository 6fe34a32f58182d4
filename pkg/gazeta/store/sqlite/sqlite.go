package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/gazeta/pkg/gazeta/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// dsn sets busy_timeout on every pooled connection, not just the first.
func dsn(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=busy_timeout(5000)"
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	fingerprint TEXT NOT NULL,
	title TEXT NOT NULL,
	artist TEXT NOT NULL,
	event_name TEXT,
	event_date TEXT NOT NULL,
	date_estimated INTEGER NOT NULL DEFAULT 0,
	municipality TEXT NOT NULL,
	venue TEXT,
	base_price REAL NOT NULL DEFAULT 0,
	source_tag TEXT,
	source_url TEXT,
	category TEXT,
	page_index INTEGER NOT NULL DEFAULT 0,
	detected_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_date ON events(event_date);
CREATE INDEX IF NOT EXISTS idx_events_municipality ON events(municipality, event_date);

CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	source_url TEXT,
	started_at TEXT NOT NULL,
	finished_at TEXT,
	state TEXT NOT NULL,
	pages_total INTEGER NOT NULL DEFAULT 0,
	pages_processed INTEGER NOT NULL DEFAULT 0,
	pages_with_errors INTEGER NOT NULL DEFAULT 0,
	events_found INTEGER NOT NULL DEFAULT 0,
	events_inserted INTEGER NOT NULL DEFAULT 0,
	error TEXT
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// UpsertEvent inserts an event unless one with the same ID exists.
// Stored events are never overwritten.
func (s *sqliteStore) UpsertEvent(ctx context.Context, e store.Event) (bool, error) {
	const stmt = `
INSERT INTO events (
	id, fingerprint, title, artist, event_name, event_date, date_estimated,
	municipality, venue, base_price, source_tag, source_url, category,
	page_index, detected_at
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING;
`

	res, err := s.db.ExecContext(
		ctx,
		stmt,
		e.ID,
		e.Fingerprint,
		e.Title,
		e.Artist,
		e.EventName,
		formatTime(e.EventDate),
		e.DateEstimated,
		e.Municipality,
		e.Venue,
		e.BasePrice,
		e.SourceTag,
		e.SourceURL,
		e.Category,
		e.PageIndex,
		formatTime(e.DetectedAt),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const eventColumns = `id, fingerprint, title, artist, event_name, event_date, date_estimated,
	municipality, venue, base_price, source_tag, source_url, category,
	page_index, detected_at`

// GetEvent retrieves an event by ID
func (s *sqliteStore) GetEvent(ctx context.Context, id string) (store.Event, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return store.Event{}, false, nil
	}
	if err != nil {
		return store.Event{}, false, err
	}
	return e, true, nil
}

// ListEvents returns events matching f, earliest event date first
func (s *sqliteStore) ListEvents(ctx context.Context, f store.Filter) ([]store.Event, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.Municipality != "" {
		where = append(where, "municipality = ?")
		args = append(args, strings.ToUpper(strings.TrimSpace(f.Municipality)))
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if !f.From.IsZero() {
		where = append(where, "event_date >= ?")
		args = append(args, formatTime(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "event_date < ?")
		args = append(args, formatTime(f.To))
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY event_date ASC, id ASC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []store.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

// CountEvents returns the number of stored events
func (s *sqliteStore) CountEvents(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}

// RecordRun inserts or updates a run record
func (s *sqliteStore) RecordRun(ctx context.Context, r store.RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO runs (
	id, source_url, started_at, finished_at, state, pages_total,
	pages_processed, pages_with_errors, events_found, events_inserted, error
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	finished_at=excluded.finished_at,
	state=excluded.state,
	pages_total=excluded.pages_total,
	pages_processed=excluded.pages_processed,
	pages_with_errors=excluded.pages_with_errors,
	events_found=excluded.events_found,
	events_inserted=excluded.events_inserted,
	error=excluded.error;
`,
		r.ID,
		r.SourceURL,
		formatTime(r.StartedAt),
		formatTime(r.FinishedAt),
		r.State,
		r.PagesTotal,
		r.PagesProcessed,
		r.PagesWithErrors,
		r.EventsFound,
		r.EventsInserted,
		r.Error,
	)
	return err
}

// GetRun retrieves a run record by ID
func (s *sqliteStore) GetRun(ctx context.Context, id string) (store.RunRecord, bool, error) {
	var (
		r                 store.RunRecord
		started, finished string
		errText           sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, source_url, started_at, finished_at, state, pages_total,
	pages_processed, pages_with_errors, events_found, events_inserted, error
FROM runs WHERE id = ?`, id).Scan(
		&r.ID,
		&r.SourceURL,
		&started,
		&finished,
		&r.State,
		&r.PagesTotal,
		&r.PagesProcessed,
		&r.PagesWithErrors,
		&r.EventsFound,
		&r.EventsInserted,
		&errText,
	)
	if err == sql.ErrNoRows {
		return store.RunRecord{}, false, nil
	}
	if err != nil {
		return store.RunRecord{}, false, err
	}
	r.StartedAt = parseTime(started)
	r.FinishedAt = parseTime(finished)
	r.Error = errText.String
	return r, true, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (store.Event, error) {
	var (
		e                   store.Event
		eventDate, detected string
		eventName, venue    sql.NullString
		tag, url, category  sql.NullString
	)
	err := row.Scan(
		&e.ID,
		&e.Fingerprint,
		&e.Title,
		&e.Artist,
		&eventName,
		&eventDate,
		&e.DateEstimated,
		&e.Municipality,
		&venue,
		&e.BasePrice,
		&tag,
		&url,
		&category,
		&e.PageIndex,
		&detected,
	)
	if err != nil {
		return store.Event{}, err
	}
	e.EventName = eventName.String
	e.Venue = venue.String
	e.SourceTag = tag.String
	e.SourceURL = url.String
	e.Category = category.String
	e.EventDate = parseTime(eventDate)
	e.DetectedAt = parseTime(detected)
	return e, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	// Event dates are local midnights; hand them back in the local zone so
	// calendar formatting shows the same day that was stored.
	return t.Local()
}
