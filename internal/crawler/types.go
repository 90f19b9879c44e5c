package crawler

import "errors"

var (
	// ErrInvalidURL is returned for roots or links that are not absolute http(s) URLs.
	ErrInvalidURL = errors.New("invalid url")
	// ErrNegativeDepth is returned when Explore is called with maxDepth < 0.
	ErrNegativeDepth = errors.New("max depth must be >= 0")
	// ErrHTTPStatus marks a fetch that completed with a non-2xx status.
	ErrHTTPStatus = errors.New("unexpected http status")
	// ErrNotHTML marks a fetch whose response is not an HTML document.
	ErrNotHTML = errors.New("response is not html")
)

// Page is the response captured by a Fetcher.
type Page struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Body        []byte
}

// IsHTML reports whether the response advertises an HTML content type.
func (p Page) IsHTML() bool {
	return containsLower(p.ContentType, "html")
}

// OK reports whether the status code is 2xx.
func (p Page) OK() bool {
	return p.StatusCode >= 200 && p.StatusCode < 300
}
