package ingest

import "strings"

// RawPage is a single page of extracted text.
type RawPage struct {
	Index int
	Text  string
}

// Window is the joined text of the most recent pages.
type Window struct {
	Text       string
	StartIndex int // first page in the window
	EndIndex   int // page whose arrival triggered the emission
}

// WindowBuffer keeps the last Size pages so cross-page context survives
// without holding the whole document in memory.
type WindowBuffer struct {
	size  int
	pages []RawPage
	peak  int
}

// NewWindowBuffer creates a buffer holding at most size pages.
// Sizes below 1 are treated as 1.
func NewWindowBuffer(size int) *WindowBuffer {
	if size < 1 {
		size = 1
	}
	return &WindowBuffer{size: size, pages: make([]RawPage, 0, size)}
}

// Push appends a page, evicting the oldest one when the buffer overflows.
// It returns a window once the buffer is full.
func (w *WindowBuffer) Push(p RawPage) (Window, bool) {
	if len(w.pages) == w.size {
		copy(w.pages, w.pages[1:])
		w.pages = w.pages[:len(w.pages)-1]
	}
	w.pages = append(w.pages, p)
	if len(w.pages) > w.peak {
		w.peak = len(w.pages)
	}

	if len(w.pages) < w.size {
		return Window{}, false
	}
	return w.current(), true
}

// Flush returns the buffered pages as a window when the final page arrived
// before the buffer filled up. It reports false when there is nothing left
// that Push has not already emitted.
func (w *WindowBuffer) Flush() (Window, bool) {
	if len(w.pages) == 0 || len(w.pages) == w.size {
		return Window{}, false
	}
	return w.current(), true
}

// Len returns the number of buffered pages.
func (w *WindowBuffer) Len() int { return len(w.pages) }

// Peak returns the largest number of pages ever buffered at once.
func (w *WindowBuffer) Peak() int { return w.peak }

func (w *WindowBuffer) current() Window {
	var b strings.Builder
	for i, p := range w.pages {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(p.Text)
	}
	return Window{
		Text:       b.String(),
		StartIndex: w.pages[0].Index,
		EndIndex:   w.pages[len(w.pages)-1].Index,
	}
}
