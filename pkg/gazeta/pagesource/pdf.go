package pagesource

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/cognicore/gazeta/pkg/gazeta/internalerr"
)

// PDF reads page text lazily from a PDF held in memory. Only one page's
// text is materialized at a time.
type PDF struct {
	r *pdf.Reader
}

// OpenPDF parses the PDF cross-reference table from content.
func OpenPDF(content []byte) (*PDF, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: empty PDF content", internalerr.ErrInvalidInput)
	}
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &PDF{r: r}, nil
}

// OpenPDFFile reads a PDF from disk.
func OpenPDFFile(path string) (*PDF, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pdf %s: %w", path, err)
	}
	return OpenPDF(data)
}

// PageCount implements PageSource.
func (p *PDF) PageCount() int { return p.r.NumPage() }

// PageText implements PageSource. Pages are zero-indexed here while the
// PDF reader counts from one.
func (p *PDF) PageText(index int) (text string, err error) {
	if index < 0 || index >= p.r.NumPage() {
		return "", fmt.Errorf("%w: page %d of %d", internalerr.ErrInvalidInput, index, p.r.NumPage())
	}

	// The reader panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: page %d: %v", internalerr.ErrUnreadablePage, index, r)
		}
	}()

	page := p.r.Page(index + 1)
	if page.V.IsNull() {
		return "", nil
	}
	text, err = page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("%w: page %d: %v", internalerr.ErrUnreadablePage, index, err)
	}
	return strings.TrimSpace(text), nil
}
