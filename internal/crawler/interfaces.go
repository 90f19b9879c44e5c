package crawler

import "context"

// Fetcher issues a single HTTP GET for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// LinkExtractor returns the raw href values of every anchor in an HTML body.
type LinkExtractor interface {
	ExtractLinks(body []byte) ([]string, error)
}
