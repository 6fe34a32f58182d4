// Package gazette locates and downloads the current edition of the AMM-MG
// municipal gazette.
package gazette

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/cognicore/gazeta/pkg/gazeta/internalerr"
)

const (
	// DefaultLandingURL is the page that links the latest edition.
	DefaultLandingURL = "https://www.diariomunicipal.com.br/amm-mg/"
	DefaultUserAgent  = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// Editions run to a few hundred pages.
	DefaultMaxBytes = 200 << 20
)

// pdfInputID is the id of the hidden input holding the edition URL.
const pdfInputID = "urlPdf"

// Client fetches gazette editions.
type Client struct {
	HTTP            *http.Client
	UserAgent       string
	PageTimeout     time.Duration
	DownloadTimeout time.Duration
	MaxBytes        int64
}

// NewClient returns a client with the usual timeouts.
func NewClient() *Client {
	return &Client{
		HTTP:            &http.Client{},
		UserAgent:       DefaultUserAgent,
		PageTimeout:     15 * time.Second,
		DownloadTimeout: 90 * time.Second,
		MaxBytes:        DefaultMaxBytes,
	}
}

// Latest finds the current edition on landingURL and downloads it.
func (c *Client) Latest(ctx context.Context, landingURL string) (string, []byte, error) {
	pdfURL, err := c.LatestPDFURL(ctx, landingURL)
	if err != nil {
		return "", nil, err
	}
	content, err := c.Download(ctx, pdfURL)
	if err != nil {
		return pdfURL, nil, err
	}
	return pdfURL, content, nil
}

// LatestPDFURL reads the landing page and returns the absolute edition URL.
func (c *Client) LatestPDFURL(ctx context.Context, landingURL string) (string, error) {
	base, err := url.Parse(landingURL)
	if err != nil {
		return "", fmt.Errorf("%w: landing url %q: %v", internalerr.ErrInvalidInput, landingURL, err)
	}

	body, err := c.get(ctx, landingURL, c.PageTimeout, "text/html,application/xhtml+xml")
	if err != nil {
		return "", err
	}

	return FindPDFURL(bytes.NewReader(body), base)
}

// Download fetches the edition bytes.
func (c *Client) Download(ctx context.Context, pdfURL string) ([]byte, error) {
	return c.get(ctx, pdfURL, c.DownloadTimeout, "application/pdf")
}

func (c *Client) get(ctx context.Context, target string, timeout time.Duration, accept string) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", internalerr.ErrFetch, target, err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", internalerr.ErrFetch, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: HTTP %d", internalerr.ErrFetch, target, resp.StatusCode)
	}

	limit := c.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", internalerr.ErrFetch, target, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: %s: body exceeds %d bytes", internalerr.ErrFetch, target, limit)
	}
	return body, nil
}

// FindPDFURL parses an HTML document and returns the value of the
// input#urlPdf element resolved against base.
func FindPDFURL(r io.Reader, base *url.URL) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("%w: parse landing page: %v", internalerr.ErrFetch, err)
	}

	var value string
	var find func(*html.Node) bool
	find = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "input" && attr(n, "id") == pdfInputID {
			value = strings.TrimSpace(attr(n, "value"))
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if find(c) {
				return true
			}
		}
		return false
	}

	if !find(doc) || value == "" {
		return "", fmt.Errorf("input#%s: %w", pdfInputID, internalerr.ErrNotFound)
	}

	ref, err := url.Parse(value)
	if err != nil {
		return "", fmt.Errorf("%w: edition url %q: %v", internalerr.ErrFetch, value, err)
	}
	if base == nil {
		return ref.String(), nil
	}
	return base.ResolveReference(ref).String(), nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
