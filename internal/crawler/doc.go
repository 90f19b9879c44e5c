// Package crawler discovers the pages reachable from a root URL. It contains
// the URL normalizer, the colly-backed fetcher, the goquery link extractor,
// and the level-synchronous breadth-first Explorer that ties them together.
package crawler
