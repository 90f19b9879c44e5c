package crawler

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// GoqueryExtractor parses HTML with goquery and collects anchor hrefs.
type GoqueryExtractor struct{}

// NewGoqueryExtractor returns a LinkExtractor backed by goquery.
func NewGoqueryExtractor() *GoqueryExtractor {
	return &GoqueryExtractor{}
}

// ExtractLinks returns the href attribute of every a[href] element in document
// order. Empty values are skipped; resolution is left to the caller.
func (GoqueryExtractor) ExtractLinks(body []byte) ([]string, error) {
	if len(body) == 0 {
		return nil, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	var hrefs []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		hrefs = append(hrefs, href)
	})
	return hrefs, nil
}
