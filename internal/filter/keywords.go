// Package filter narrows discovered URLs before rendering.
package filter

import "strings"

// ByKeywords keeps the URLs that contain at least one keyword,
// case-insensitively. Keywords are trimmed and blanks ignored; when no usable
// keyword remains every URL is kept. Input order is preserved.
func ByKeywords(urls, keywords []string) []string {
	needles := normalizeKeywords(keywords)
	if len(needles) == 0 {
		return append([]string(nil), urls...)
	}
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		lower := strings.ToLower(u)
		for _, kw := range needles {
			if strings.Contains(lower, kw) {
				out = append(out, u)
				break
			}
		}
	}
	return out
}

func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
