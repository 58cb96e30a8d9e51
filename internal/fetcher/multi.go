package fetcher

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// MultiFetcher routes each URL to the fetcher registered for its scheme.
type MultiFetcher struct {
	byScheme map[string]Fetcher
}

// NewMultiFetcher serves http and https through web and ftp through ftpF.
// Either may be nil to leave that scheme unsupported.
func NewMultiFetcher(web Fetcher, ftpF Fetcher) *MultiFetcher {
	m := &MultiFetcher{byScheme: make(map[string]Fetcher)}
	if web != nil {
		m.byScheme["http"] = web
		m.byScheme["https"] = web
	}
	if ftpF != nil {
		m.byScheme["ftp"] = ftpF
	}
	return m
}

// Download dispatches on the URL scheme.
func (m *MultiFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: parse url")
	}
	f, ok := m.byScheme[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}
	return f.Download(ctx, rawURL)
}
