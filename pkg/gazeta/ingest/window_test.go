package ingest

import (
	"fmt"
	"testing"
)

func TestWindowBufferEmitsOnceFull(t *testing.T) {
	w := NewWindowBuffer(3)

	if _, ok := w.Push(RawPage{Index: 0, Text: "a"}); ok {
		t.Error("should not emit before the buffer is full")
	}
	if _, ok := w.Push(RawPage{Index: 1, Text: "b"}); ok {
		t.Error("should not emit before the buffer is full")
	}

	win, ok := w.Push(RawPage{Index: 2, Text: "c"})
	if !ok {
		t.Fatal("should emit once the buffer holds 3 pages")
	}
	if win.Text != "a\nb\nc" {
		t.Errorf("unexpected window text %q", win.Text)
	}
	if win.StartIndex != 0 || win.EndIndex != 2 {
		t.Errorf("expected pages 0..2, got %d..%d", win.StartIndex, win.EndIndex)
	}

	win, ok = w.Push(RawPage{Index: 3, Text: "d"})
	if !ok {
		t.Fatal("should emit after every page once full")
	}
	if win.Text != "b\nc\nd" {
		t.Errorf("oldest page should be evicted, got %q", win.Text)
	}
	if win.StartIndex != 1 || win.EndIndex != 3 {
		t.Errorf("expected pages 1..3, got %d..%d", win.StartIndex, win.EndIndex)
	}
}

func TestWindowBufferFlushShortDocument(t *testing.T) {
	w := NewWindowBuffer(3)
	w.Push(RawPage{Index: 0, Text: "first"})
	w.Push(RawPage{Index: 1, Text: "second"})

	win, ok := w.Flush()
	if !ok {
		t.Fatal("trailing pages of a short document must be flushed")
	}
	if win.Text != "first\nsecond" {
		t.Errorf("unexpected flushed text %q", win.Text)
	}
	if win.EndIndex != 1 {
		t.Errorf("expected end index 1, got %d", win.EndIndex)
	}
}

func TestWindowBufferFlushAfterFullIsNoop(t *testing.T) {
	w := NewWindowBuffer(2)
	w.Push(RawPage{Index: 0})
	w.Push(RawPage{Index: 1})

	if _, ok := w.Flush(); ok {
		t.Error("a full buffer was already emitted by Push")
	}
}

func TestWindowBufferFlushEmpty(t *testing.T) {
	if _, ok := NewWindowBuffer(3).Flush(); ok {
		t.Error("empty buffer should not emit")
	}
}

func TestWindowBufferSizeFloor(t *testing.T) {
	w := NewWindowBuffer(0)
	if _, ok := w.Push(RawPage{Index: 0, Text: "x"}); !ok {
		t.Error("size below 1 should behave as size 1")
	}
}

func TestWindowBufferNeverExceedsSize(t *testing.T) {
	for size := 1; size <= 5; size++ {
		for pages := 0; pages <= 20; pages++ {
			t.Run(fmt.Sprintf("W%d_L%d", size, pages), func(t *testing.T) {
				w := NewWindowBuffer(size)
				emitted := 0
				for i := 0; i < pages; i++ {
					if _, ok := w.Push(RawPage{Index: i, Text: "p"}); ok {
						emitted++
					}
					if w.Len() > size {
						t.Fatalf("buffer holds %d pages, limit %d", w.Len(), size)
					}
				}
				if _, ok := w.Flush(); ok {
					emitted++
				}

				if w.Peak() > size {
					t.Errorf("peak %d exceeds window size %d", w.Peak(), size)
				}
				if pages > 0 && emitted == 0 {
					t.Error("a non-empty document must produce at least one window")
				}
				if pages == 0 && emitted != 0 {
					t.Error("an empty document must not produce windows")
				}
			})
		}
	}
}
