package crawler

import (
	"context"
	"fmt"
)

// Request describes one page to fetch.
type Request struct {
	URL string
	// WaitSelector is a CSS selector that must be visible before the page
	// is captured. Fetchers that do not render ignore it.
	WaitSelector string
	// Screenshot, when set, is the file a full page PNG is written to.
	Screenshot string
}

// Page is a fetched document.
type Page struct {
	URL  string
	HTML string
}

// Fetcher retrieves pages.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Page, error)
}

// FetchError reports a page that could not be retrieved.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
