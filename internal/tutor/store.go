package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Source is where a catalog document comes from. Implementations can be a
// local file, a remote API, or a database; callers of Source do not need to
// know which one is used.
type Source interface {
	Load(ctx context.Context) (*Document, error)
}

// FileSource loads the catalog from a JSON document on disk.
type FileSource struct {
	Path string
}

// Load implements Source.Load.
func (s FileSource) Load(_ context.Context) (*Document, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %q: %w", s.Path, err)
	}
	defer f.Close()
	return decodeDocument(f)
}

// DefaultFetchTimeout bounds a single HTTPSource request.
const DefaultFetchTimeout = 10 * time.Second

// HTTPSource loads the catalog from an API that serves the document format.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// NewHTTPSource returns an HTTPSource whose requests time out after timeout.
// If timeout <= 0, DefaultFetchTimeout is used.
func NewHTTPSource(url string, timeout time.Duration) HTTPSource {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return HTTPSource{URL: url, Client: &http.Client{Timeout: timeout}}
}

// Load implements Source.Load.
func (s HTTPSource) Load(ctx context.Context) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultFetchTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetch %s: %w", s.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("catalog: fetch %s: unexpected status %d", s.URL, resp.StatusCode)
	}
	return decodeDocument(resp.Body)
}

func decodeDocument(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("catalog: decode document: %w", err)
	}
	return &doc, nil
}

// FallbackSource tries each source in order and returns the first document
// that loads. Failures are logged as warnings. If every source fails, Load
// returns an empty document and no error: an empty catalog is a usable
// catalog.
type FallbackSource struct {
	Sources []Source
	Log     *slog.Logger
}

// Load implements Source.Load.
func (s FallbackSource) Load(ctx context.Context) (*Document, error) {
	var errs []error
	for i, src := range s.Sources {
		if src == nil {
			continue
		}
		doc, err := src.Load(ctx)
		if err == nil {
			return doc, nil
		}
		errs = append(errs, err)
		if s.Log != nil {
			s.Log.Warn("catalog source failed, falling back",
				slog.Int("source", i),
				slog.String("error", err.Error()))
		}
		if ctx.Err() != nil {
			break
		}
	}
	if s.Log != nil && len(errs) > 0 {
		s.Log.Warn("all catalog sources failed, using empty catalog",
			slog.String("error", errors.Join(errs...).Error()))
	}
	return &Document{Videos: []Record{}}, nil
}
