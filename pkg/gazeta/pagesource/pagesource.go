// Package pagesource adapts paginated documents for the mining pipeline.
package pagesource

import (
	"fmt"
	"strings"

	"github.com/cognicore/gazeta/pkg/gazeta/internalerr"
)

// PageSource exposes a paginated document one page at a time.
// PageText may return an error for an unreadable page; callers treat such
// a page as empty and move on.
type PageSource interface {
	PageCount() int
	PageText(index int) (string, error)
}

// Text is an in-memory PageSource over already extracted page texts.
type Text struct {
	pages []string
}

// FromPages creates a source with one entry per page.
func FromPages(pages ...string) *Text {
	return &Text{pages: pages}
}

// FromText splits text on form feeds, the page separator written by
// pdftotext and most text dumps of gazettes.
func FromText(text string) *Text {
	if text == "" {
		return &Text{}
	}
	return &Text{pages: strings.Split(text, "\f")}
}

// PageCount implements PageSource.
func (t *Text) PageCount() int { return len(t.pages) }

// PageText implements PageSource.
func (t *Text) PageText(index int) (string, error) {
	if index < 0 || index >= len(t.pages) {
		return "", fmt.Errorf("%w: page %d of %d", internalerr.ErrInvalidInput, index, len(t.pages))
	}
	return t.pages[index], nil
}
