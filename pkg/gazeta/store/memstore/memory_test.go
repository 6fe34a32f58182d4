package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/cognicore/gazeta/pkg/gazeta/store"
)

var _ store.Store = (*Store)(nil)

func TestUpsertEvent_KeepsFirst(t *testing.T) {
	ctx := context.Background()
	s := New()

	inserted, err := s.UpsertEvent(ctx, store.Event{ID: "a", Artist: "Tal", BasePrice: 100})
	if err != nil || !inserted {
		t.Fatalf("first insert: inserted=%v err=%v", inserted, err)
	}
	inserted, err = s.UpsertEvent(ctx, store.Event{ID: "a", Artist: "Outra", BasePrice: 200})
	if err != nil || inserted {
		t.Fatalf("second insert should be a no-op: inserted=%v err=%v", inserted, err)
	}

	e, ok, _ := s.GetEvent(ctx, "a")
	if !ok || e.Artist != "Tal" {
		t.Errorf("stored event should be unchanged, got %+v", e)
	}
	if n, _ := s.CountEvents(ctx); n != 1 {
		t.Errorf("expected 1 event, got %d", n)
	}
}

func TestGetEvent_Missing(t *testing.T) {
	_, ok, err := New().GetEvent(context.Background(), "nope")
	if ok || err != nil {
		t.Errorf("expected not found, got ok=%v err=%v", ok, err)
	}
}

func TestListEvents_Filter(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	s.UpsertEvent(ctx, store.Event{ID: "c", Municipality: "UBÁ", Category: "show", EventDate: base.AddDate(0, 0, 2)})
	s.UpsertEvent(ctx, store.Event{ID: "a", Municipality: "ITAÚNA", Category: "carnival", EventDate: base})
	s.UpsertEvent(ctx, store.Event{ID: "b", Municipality: "ITAÚNA", Category: "show", EventDate: base.AddDate(0, 0, 1)})

	all, _ := s.ListEvents(ctx, store.Filter{})
	if len(all) != 3 || all[0].ID != "a" || all[2].ID != "c" {
		t.Errorf("expected date order a,b,c, got %+v", all)
	}

	byCity, _ := s.ListEvents(ctx, store.Filter{Municipality: "itaúna"})
	if len(byCity) != 2 {
		t.Errorf("expected 2 events for ITAÚNA, got %d", len(byCity))
	}

	byCategory, _ := s.ListEvents(ctx, store.Filter{Category: "show"})
	if len(byCategory) != 2 {
		t.Errorf("expected 2 show events, got %d", len(byCategory))
	}

	window, _ := s.ListEvents(ctx, store.Filter{From: base.AddDate(0, 0, 1), To: base.AddDate(0, 0, 2)})
	if len(window) != 1 || window[0].ID != "b" {
		t.Errorf("expected only b in [from, to), got %+v", window)
	}

	limited, _ := s.ListEvents(ctx, store.Filter{Limit: 1})
	if len(limited) != 1 || limited[0].ID != "a" {
		t.Errorf("expected earliest event only, got %+v", limited)
	}
}

func TestRecordRun(t *testing.T) {
	ctx := context.Background()
	s := New()

	s.RecordRun(ctx, store.RunRecord{ID: "r1", State: "paginating"})
	s.RecordRun(ctx, store.RunRecord{ID: "r1", State: "done", EventsFound: 2})

	r, ok, _ := s.GetRun(ctx, "r1")
	if !ok || r.State != "done" || r.EventsFound != 2 {
		t.Errorf("expected updated run, got %+v", r)
	}
}
