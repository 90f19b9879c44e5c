// Package storage mirrors rendered PDFs to a blob store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// PDFContentType is the content type attached to mirrored documents.
const PDFContentType = "application/pdf"

// BlobStore persists objects and returns their URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// MirrorResult lists the uploaded objects and the per-file failures of a
// Mirror call.
type MirrorResult struct {
	// URIs maps the local file path to the returned object URI.
	URIs   map[string]string
	Errors []error
}

// Mirror uploads every file in results (source URL -> local path) to
// <prefix>/<basename>. Files are processed in path order; one failed upload
// never stops the others.
func Mirror(ctx context.Context, store BlobStore, prefix string, results map[string]string) MirrorResult {
	out := MirrorResult{URIs: make(map[string]string, len(results))}
	paths := make([]string, 0, len(results))
	for _, p := range results {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, local := range paths {
		if err := ctx.Err(); err != nil {
			out.Errors = append(out.Errors, fmt.Errorf("mirror %s: %w", local, err))
			continue
		}
		uri, err := putFile(ctx, store, ObjectPath(prefix, local), local)
		if err != nil {
			out.Errors = append(out.Errors, err)
			continue
		}
		out.URIs[local] = uri
	}
	return out
}

// Err joins the collected upload errors.
func (r MirrorResult) Err() error {
	return errors.Join(r.Errors...)
}

// ObjectPath returns the object key for a local file under prefix.
func ObjectPath(prefix, local string) string {
	prefix = strings.Trim(prefix, "/")
	base := filepath.Base(local)
	if prefix == "" {
		return base
	}
	return path.Join(prefix, base)
}

func putFile(ctx context.Context, store BlobStore, key, local string) (string, error) {
	f, err := os.Open(local) //nolint:gosec // paths come from the render report
	if err != nil {
		return "", fmt.Errorf("open %s: %w", local, err)
	}
	defer f.Close() //nolint:errcheck // read-only

	uri, err := store.PutObject(ctx, key, PDFContentType, f)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return uri, nil
}
