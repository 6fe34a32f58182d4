// Package export writes stored events as JSON lines or a plain table.
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cognicore/gazeta/pkg/gazeta/store"
)

// Record is the exported form of an event
type Record struct {
	ID            string    `json:"id"`
	Title         string    `json:"titulo"`
	Artist        string    `json:"artista"`
	EventName     string    `json:"evento"`
	EventDate     string    `json:"data_inicio"`
	DateEstimated bool      `json:"data_estimada"`
	Municipality  string    `json:"cidade"`
	Venue         string    `json:"local"`
	BasePrice     float64   `json:"preco_base"`
	Category      string    `json:"categoria"`
	SourceTag     string    `json:"fonte"`
	SourceURL     string    `json:"url_fonte"`
	DetectedAt    time.Time `json:"detectado_em"`
}

// FromEvent converts a stored event.
func FromEvent(e store.Event) Record {
	return Record{
		ID:            e.ID,
		Title:         e.Title,
		Artist:        e.Artist,
		EventName:     e.EventName,
		EventDate:     e.EventDate.Format("2006-01-02"),
		DateEstimated: e.DateEstimated,
		Municipality:  e.Municipality,
		Venue:         e.Venue,
		BasePrice:     e.BasePrice,
		Category:      e.Category,
		SourceTag:     e.SourceTag,
		SourceURL:     e.SourceURL,
		DetectedAt:    e.DetectedAt,
	}
}

// WriteJSONL writes one JSON object per line.
func WriteJSONL(w io.Writer, events []store.Event) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for _, e := range events {
		if err := enc.Encode(FromEvent(e)); err != nil {
			return fmt.Errorf("encode event %s: %w", e.ID, err)
		}
	}
	return bw.Flush()
}

// WriteJSONLFile writes events to path, replacing it.
func WriteJSONLFile(path string, events []store.Event) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSONL(f, events); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadFromJSONL loads records from a JSONL file with proper error handling
func LoadFromJSONL(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	var records []Record
	lines := strings.Split(string(data), "\n")

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			log.Printf("Warning: skipping malformed JSON at line %d in %s: %v", i+1, path, err)
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}

// WriteTable prints events as aligned columns.
func WriteTable(w io.Writer, events []store.Event) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATA\tCIDADE\tARTISTA\tEVENTO\tVALOR\tCATEGORIA")
	for _, e := range events {
		date := e.EventDate.Format("02/01/2006")
		if e.DateEstimated {
			date += "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			date, e.Municipality, e.Artist, e.EventName, FormatBRL(e.BasePrice), e.Category)
	}
	return tw.Flush()
}

// FormatBRL renders a value as "R$ 12.500,00".
func FormatBRL(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	intPart, frac, _ := strings.Cut(s, ".")

	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	out := "R$ " + b.String() + "," + frac
	if neg {
		out = "-" + out
	}
	return out
}
