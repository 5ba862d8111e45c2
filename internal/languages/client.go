package languages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/brightsprout/storefront-api/internal/domain"
)

// Fetcher loads the list of languages a book is available in.
type Fetcher interface {
	FetchLanguages(ctx context.Context, slug string) ([]domain.Language, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, slug string) ([]domain.Language, error)

// FetchLanguages implements Fetcher.
func (fn FetcherFunc) FetchLanguages(ctx context.Context, slug string) ([]domain.Language, error) {
	return fn(ctx, slug)
}

var (
	// ErrSlugRequired indicates an empty book slug.
	ErrSlugRequired = errors.New("languages: slug required")
	// ErrNotFound indicates the upstream knows no such book.
	ErrNotFound = errors.New("languages: book not found")
)

const defaultRequestTimeout = 5 * time.Second

// Client fetches language availability from the upstream catalog API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption customises client construction.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client used for upstream requests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient constructs a client against the given upstream base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

type languagesResponse struct {
	AvailableLanguages []struct {
		Code    string   `json:"code"`
		Name    string   `json:"name"`
		Formats []string `json:"formats"`
	} `json:"availableLanguages"`
}

// FetchLanguages implements Fetcher against the upstream HTTP API.
func (c *Client) FetchLanguages(ctx context.Context, slug string) ([]domain.Language, error) {
	if slug == "" {
		return nil, ErrSlugRequired
	}

	endpoint := fmt.Sprintf("%s/api/books/%s/languages", c.baseURL, url.PathEscape(slug))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("languages: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("languages: fetch %s: %w", slug, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, slug)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("languages: fetch %s: unexpected status %d", slug, resp.StatusCode)
	}

	var payload languagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("languages: decode %s: %w", slug, err)
	}

	out := make([]domain.Language, 0, len(payload.AvailableLanguages))
	for _, entry := range payload.AvailableLanguages {
		if entry.Code == "" {
			continue
		}
		out = append(out, domain.Language{
			Code:    entry.Code,
			Name:    entry.Name,
			Formats: append([]string(nil), entry.Formats...),
		})
	}
	return out, nil
}
