package ingest

import "testing"

func TestFingerprintIgnoresCaseAndAccents(t *testing.T) {
	a := Fingerprint("Banda Tal", "ITAÚNA", 100, false)
	b := Fingerprint("BANDA  TAL", "itauna", 999, false)
	if a != b {
		t.Error("fingerprints should match across case, accents and value")
	}

	if Fingerprint("Banda Tal", "ITAÚNA", 100, true) == Fingerprint("Banda Tal", "ITAÚNA", 999, true) {
		t.Error("value should distinguish fingerprints when included")
	}
	if Fingerprint("Banda Tal", "ITAÚNA", 0, false) == Fingerprint("Banda Tal", "UBÁ", 0, false) {
		t.Error("municipality should distinguish fingerprints")
	}
}

func TestDeduplicatorKeepFirst(t *testing.T) {
	d := NewDeduplicator(KeepFirst, false)

	if !d.Offer(Event{Artist: "Tal", Municipality: "ITAÚNA", BasePrice: 5000}) {
		t.Error("first event should be stored")
	}
	if !d.Offer(Event{Artist: "Outra", Municipality: "ITAÚNA", BasePrice: 1000}) {
		t.Error("distinct artist should be stored")
	}
	if d.Offer(Event{Artist: "TAL", Municipality: "Itaúna", BasePrice: 8000}) {
		t.Error("repeat should be dropped")
	}

	events := d.Events()
	if len(events) != 2 || d.Len() != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].BasePrice != 5000 {
		t.Errorf("keep_first should keep the first value, got %v", events[0].BasePrice)
	}
	if events[0].Fingerprint == "" {
		t.Error("stored events should carry their fingerprint")
	}
}

func TestDeduplicatorKeepMaxValue(t *testing.T) {
	d := NewDeduplicator(KeepMaxValue, false)

	d.Offer(Event{Artist: "Tal", Municipality: "ITAÚNA", BasePrice: 5000})
	d.Offer(Event{Artist: "Outra", Municipality: "ITAÚNA", BasePrice: 1000})

	if !d.Offer(Event{Artist: "Tal", Municipality: "ITAÚNA", BasePrice: 8000}) {
		t.Error("greater value should replace")
	}
	if d.Offer(Event{Artist: "Tal", Municipality: "ITAÚNA", BasePrice: 8000}) {
		t.Error("equal value should not replace")
	}

	events := d.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Artist != "Tal" || events[0].BasePrice != 8000 {
		t.Errorf("replacement should keep first-seen position, got %+v", events[0])
	}
}

func TestDeduplicatorIncludeValue(t *testing.T) {
	d := NewDeduplicator(KeepFirst, true)

	d.Offer(Event{Artist: "Tal", Municipality: "ITAÚNA", BasePrice: 5000})
	d.Offer(Event{Artist: "Tal", Municipality: "ITAÚNA", BasePrice: 8000})

	if d.Len() != 2 {
		t.Errorf("different values should be distinct contracts, got %d", d.Len())
	}
}

func TestDeduplicatorEventsIsCopy(t *testing.T) {
	d := NewDeduplicator("", false)
	d.Offer(Event{Artist: "Tal", Municipality: "ITAÚNA"})

	events := d.Events()
	events[0].Artist = "changed"
	if d.Events()[0].Artist != "Tal" {
		t.Error("Events should return a copy")
	}
}

func TestParseDedupPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    DedupPolicy
		wantErr bool
	}{
		{"", KeepFirst, false},
		{"keep_first", KeepFirst, false},
		{"keep_max_value", KeepMaxValue, false},
		{"keep_last", "", true},
	}

	for _, tt := range tests {
		got, err := ParseDedupPolicy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseDedupPolicy(%q) = %q, %v", tt.in, got, err)
		}
	}
}
