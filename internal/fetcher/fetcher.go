// Package fetcher downloads inventory exports and decodes them into rows.
package fetcher

import (
	"context"
	"fmt"
	"io"
)

// Fetcher downloads a remote document.
type Fetcher interface {
	// Download fetches the URL and returns the body. The caller closes it.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// StatusError reports a completed request that ended with a non-200 status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetcher: unexpected status %d from %s", e.StatusCode, e.URL)
}
