package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// DedupPolicy decides what happens when a fingerprint repeats.
type DedupPolicy string

const (
	// KeepFirst keeps the first event seen for a fingerprint.
	KeepFirst DedupPolicy = "keep_first"
	// KeepMaxValue replaces the stored event when a later one has a
	// strictly greater value.
	KeepMaxValue DedupPolicy = "keep_max_value"
)

// ParseDedupPolicy validates a policy name. Empty means KeepFirst.
func ParseDedupPolicy(s string) (DedupPolicy, error) {
	switch DedupPolicy(s) {
	case "", KeepFirst:
		return KeepFirst, nil
	case KeepMaxValue:
		return KeepMaxValue, nil
	}
	return "", fmt.Errorf("unknown dedup policy %q", s)
}

// Fingerprint hashes the identifying parts of a contract mention. The value
// participates only when includeValue is set.
func Fingerprint(artist, municipality string, value float64, includeValue bool) string {
	h := sha256.New()
	h.Write([]byte(Fold(CollapseSpace(artist))))
	h.Write([]byte{0})
	h.Write([]byte(Fold(CollapseSpace(municipality))))
	if includeValue {
		h.Write([]byte{0})
		h.Write([]byte(strconv.FormatFloat(value, 'f', 2, 64)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Deduplicator suppresses repeated mentions of the same contract within a
// run. Output keeps the order in which fingerprints were first seen.
type Deduplicator struct {
	policy       DedupPolicy
	includeValue bool
	index        map[string]int
	events       []Event
}

// NewDeduplicator creates an empty deduplicator.
func NewDeduplicator(policy DedupPolicy, includeValue bool) *Deduplicator {
	if policy == "" {
		policy = KeepFirst
	}
	return &Deduplicator{
		policy:       policy,
		includeValue: includeValue,
		index:        make(map[string]int),
	}
}

// Offer records an event. It reports whether the event was stored, either
// as a new fingerprint or as a replacement.
func (d *Deduplicator) Offer(ev Event) bool {
	fp := Fingerprint(ev.Artist, ev.Municipality, ev.BasePrice, d.includeValue)
	ev.Fingerprint = fp

	i, seen := d.index[fp]
	if !seen {
		d.index[fp] = len(d.events)
		d.events = append(d.events, ev)
		return true
	}
	if d.policy == KeepMaxValue && ev.BasePrice > d.events[i].BasePrice {
		d.events[i] = ev
		return true
	}
	return false
}

// Len returns the number of distinct fingerprints.
func (d *Deduplicator) Len() int { return len(d.events) }

// Events returns the stored events in first-seen order.
func (d *Deduplicator) Events() []Event {
	out := make([]Event, len(d.events))
	copy(out, d.events)
	return out
}
