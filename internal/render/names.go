package render

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"
)

const (
	// MaxNameLength is the longest base name, in runes, produced by SanitizeFilename.
	MaxNameLength = 140
	// FallbackName replaces names that sanitize to nothing.
	FallbackName = "untitled"
)

var (
	illegalFilenameChars = regexp.MustCompile(`[\\/:*?"<>|\x00-\x1f\x7f]`)
	whitespaceRun        = regexp.MustCompile(`\s+`)
)

// SanitizeFilename makes name safe to use as a file base name on common
// filesystems. Illegal characters become underscores, whitespace runs collapse
// to one space, leading and trailing dots and spaces are trimmed, and the
// result is capped at MaxNameLength runes.
func SanitizeFilename(name string) string {
	name = whitespaceRun.ReplaceAllString(name, " ")
	name = illegalFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, " .")
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = string([]rune(name)[:MaxNameLength])
		name = strings.TrimRight(name, " .")
	}
	if name == "" {
		return FallbackName
	}
	return name
}

// NameFromURL derives a base name from the host and path of rawURL, for pages
// without a title.
func NameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return SanitizeFilename(rawURL)
	}
	base := strings.Trim(u.Host+u.Path, "/")
	base = strings.ReplaceAll(base, "/", "_")
	switch {
	case base != "":
		return SanitizeFilename(base)
	case u.Host != "":
		return SanitizeFilename(u.Host)
	default:
		return "page"
	}
}

// NameAllocator hands out unique file base names for one render run.
// Names are compared case-insensitively. It is safe for concurrent use.
type NameAllocator struct {
	mu      sync.Mutex
	claimed map[string]struct{}
}

// NewNameAllocator returns an empty allocator.
func NewNameAllocator() *NameAllocator {
	return &NameAllocator{claimed: make(map[string]struct{})}
}

// Allocate sanitizes candidate and claims it, appending _2, _3, ... until the
// name is unclaimed. No two calls return the same name.
func (a *NameAllocator) Allocate(candidate string) string {
	base := SanitizeFilename(candidate)

	a.mu.Lock()
	defer a.mu.Unlock()
	name := base
	for suffix := 2; ; suffix++ {
		key := strings.ToLower(name)
		if _, taken := a.claimed[key]; !taken {
			a.claimed[key] = struct{}{}
			return name
		}
		name = fmt.Sprintf("%s_%d", base, suffix)
	}
}
