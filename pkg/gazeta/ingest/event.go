package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// Event is a contract for a musical or cultural show found in a gazette.
type Event struct {
	ID            string
	Fingerprint   string
	Title         string
	Artist        string
	EventName     string
	EventDate     time.Time
	DateEstimated bool // EventDate is the placeholder, not a parsed date
	Municipality  string
	Venue         string
	BasePrice     float64
	SourceTag     string
	SourceURL     string
	Category      string
	PageIndex     int
	DetectedAt    time.Time
}

// Validate checks if the event has required fields
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return errors.New("event title is required")
	}

	if strings.TrimSpace(e.Municipality) == "" {
		return errors.New("event municipality is required")
	}

	if e.EventDate.IsZero() {
		return errors.New("event date is required")
	}

	if e.BasePrice < 0 {
		return errors.New("event base price must not be negative")
	}

	return nil
}

// EventID derives the persistent identifier of an event from its content.
// Placeholder dates change from run to run, so estimated events are keyed by
// their source document instead.
func EventID(title string, date time.Time, estimated bool, municipality, sourceURL string) string {
	when := date.Format("2006-01-02")
	if estimated {
		when = "estimated:" + sourceURL
	}
	seed := strings.ToLower(strings.Join([]string{CollapseSpace(title), when, CollapseSpace(municipality)}, "|"))
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}
