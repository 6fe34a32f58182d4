package gazette

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/cognicore/gazeta/pkg/gazeta/internalerr"
)

const landingHTML = `<!DOCTYPE html>
<html><body>
<form id="busca"><input type="text" name="q"></form>
<input type="hidden" id="urlPdf" value="/arquivos/edicao-1234.pdf">
</body></html>`

func newGazetteServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/amm-mg/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(landingHTML))
	})
	mux.HandleFunc("/arquivos/edicao-1234.pdf", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != DefaultUserAgent {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		w.Write([]byte("%PDF-1.4 fake"))
	})
	mux.HandleFunc("/vazio/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>manutenção</p></body></html>"))
	})
	mux.HandleFunc("/erro/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLatest(t *testing.T) {
	srv := newGazetteServer(t)
	c := NewClient()

	pdfURL, content, err := c.Latest(context.Background(), srv.URL+"/amm-mg/")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if pdfURL != srv.URL+"/arquivos/edicao-1234.pdf" {
		t.Errorf("relative edition URL should resolve against the landing page, got %q", pdfURL)
	}
	if string(content) != "%PDF-1.4 fake" {
		t.Errorf("unexpected content %q", content)
	}
}

func TestLatestPDFURLMissingInput(t *testing.T) {
	srv := newGazetteServer(t)

	_, err := NewClient().LatestPDFURL(context.Background(), srv.URL+"/vazio/")
	if !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLatestPDFURLHTTPError(t *testing.T) {
	srv := newGazetteServer(t)

	_, err := NewClient().LatestPDFURL(context.Background(), srv.URL+"/erro/")
	if !errors.Is(err, internalerr.ErrFetch) {
		t.Errorf("expected ErrFetch, got %v", err)
	}
}

func TestDownloadTooLarge(t *testing.T) {
	srv := newGazetteServer(t)
	c := NewClient()
	c.MaxBytes = 4

	_, err := c.Download(context.Background(), srv.URL+"/arquivos/edicao-1234.pdf")
	if !errors.Is(err, internalerr.ErrFetch) {
		t.Errorf("expected ErrFetch for an oversized body, got %v", err)
	}
}

func TestDownloadTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	c := NewClient()
	c.DownloadTimeout = 50 * time.Millisecond

	_, err := c.Download(context.Background(), slow.URL)
	if !errors.Is(err, internalerr.ErrFetch) {
		t.Errorf("expected ErrFetch on timeout, got %v", err)
	}
}

func TestFindPDFURL(t *testing.T) {
	base, _ := url.Parse("https://www.diariomunicipal.com.br/amm-mg/")

	tests := []struct {
		name    string
		html    string
		want    string
		wantErr error
	}{
		{
			name: "absolute",
			html: `<input id="urlPdf" value="https://cdn.example.org/x.pdf">`,
			want: "https://cdn.example.org/x.pdf",
		},
		{
			name: "relative",
			html: `<div><input id="urlPdf" value=" edicoes/x.pdf "></div>`,
			want: "https://www.diariomunicipal.com.br/amm-mg/edicoes/x.pdf",
		},
		{
			name:    "empty value",
			html:    `<input id="urlPdf" value="">`,
			wantErr: internalerr.ErrNotFound,
		},
		{
			name:    "other input",
			html:    `<input id="busca" value="x.pdf">`,
			wantErr: internalerr.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindPDFURL(strings.NewReader(tt.html), base)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindPDFURL: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
