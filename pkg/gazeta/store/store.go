package store

import (
	"context"
	"time"
)

// Store persists mined events and the runs that produced them
type Store interface {
	Close() error

	// Events
	UpsertEvent(ctx context.Context, e Event) (inserted bool, err error)
	GetEvent(ctx context.Context, id string) (Event, bool, error)
	ListEvents(ctx context.Context, f Filter) ([]Event, error)
	CountEvents(ctx context.Context) (int64, error)

	// Runs
	RecordRun(ctx context.Context, r RunRecord) error
	GetRun(ctx context.Context, id string) (RunRecord, bool, error)
}

// Event represents a stored show contract
type Event struct {
	ID            string
	Fingerprint   string
	Title         string
	Artist        string
	EventName     string
	EventDate     time.Time
	DateEstimated bool
	Municipality  string
	Venue         string
	BasePrice     float64
	SourceTag     string
	SourceURL     string
	Category      string
	PageIndex     int
	DetectedAt    time.Time
}

// Filter narrows ListEvents. Zero fields match everything.
type Filter struct {
	Municipality string // exact, case-insensitive
	Category     string
	From         time.Time // inclusive
	To           time.Time // exclusive
	Limit        int
}

// RunRecord describes one mining run over a document
type RunRecord struct {
	ID              string
	SourceURL       string
	StartedAt       time.Time
	FinishedAt      time.Time
	State           string
	PagesTotal      int
	PagesProcessed  int
	PagesWithErrors int
	EventsFound     int
	EventsInserted  int
	Error           string
}
