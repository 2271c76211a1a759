package integrity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"
)

// Fetcher streams the artifact at uri into dst and returns the byte count.
type Fetcher interface {
	Fetch(ctx context.Context, uri string, dst io.Writer) (int64, error)
}

// FetchError carries a short, path-free failure class such as
// "http_404", "network" or "unsupported_scheme".
type FetchError struct {
	Class string
	Err   error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return "fetch " + e.Class
	}
	return "fetch " + e.Class + ": " + e.Err.Error()
}

func (e *FetchError) Unwrap() error { return e.Err }

// FetchClass returns the class of a fetch failure, "canceled" or "timeout"
// for context errors, and "unknown" otherwise.
func FetchClass(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	var fe *FetchError
	if errors.As(err, &fe) && fe.Class != "" {
		return fe.Class
	}
	return "unknown"
}

// HTTPFetcher fetches http(s):// and file:// URIs.
type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
}

// NewHTTPFetcher returns a fetcher whose client has no overall timeout; the
// caller's context bounds each download.
func NewHTTPFetcher(connectTimeout time.Duration) *HTTPFetcher {
	if connectTimeout <= 0 {
		connectTimeout = 15 * time.Second
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 60 * time.Second,
	}
	return &HTTPFetcher{Client: &http.Client{Transport: tr}, UserAgent: "privgate"}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, uri string, dst io.Writer) (int64, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return 0, &FetchError{Class: "invalid_uri", Err: err}
	}
	switch u.Scheme {
	case "http", "https":
		return f.fetchHTTP(ctx, u, dst)
	case "file":
		return fetchFile(ctx, u, dst)
	default:
		return 0, &FetchError{Class: "unsupported_scheme", Err: fmt.Errorf("scheme %q", u.Scheme)}
	}
}

func (f *HTTPFetcher) fetchHTTP(ctx context.Context, u *url.URL, dst io.Writer) (int64, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, &FetchError{Class: "invalid_uri", Err: err}
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, &FetchError{Class: "network", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return 0, &FetchError{Class: fmt.Sprintf("http_%d", resp.StatusCode)}
	}
	n, err := io.Copy(dst, resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		return n, &FetchError{Class: "read", Err: err}
	}
	return n, nil
}

func fetchFile(ctx context.Context, u *url.URL, dst io.Writer) (int64, error) {
	src, err := os.Open(u.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, &FetchError{Class: "not_found", Err: err}
		}
		return 0, &FetchError{Class: "io", Err: err}
	}
	defer src.Close()
	n, err := io.Copy(dst, ctxReader{ctx: ctx, r: src})
	if err != nil {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		return n, &FetchError{Class: "io", Err: err}
	}
	return n, nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
