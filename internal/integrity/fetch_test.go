package integrity

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/m.gguf" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(goodBytes)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(0)
	var buf bytes.Buffer
	n, err := f.Fetch(context.Background(), srv.URL+"/m.gguf", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(goodBytes)), n)
	assert.Equal(t, goodBytes, buf.Bytes())

	_, err = f.Fetch(context.Background(), srv.URL+"/missing", &buf)
	assert.Equal(t, "http_404", FetchClass(err))
}

func TestHTTPFetcher_FileAndScheme(t *testing.T) {
	p := filepath.Join(t.TempDir(), "src.gguf")
	require.NoError(t, os.WriteFile(p, goodBytes, 0o644))
	f := NewHTTPFetcher(0)

	var buf bytes.Buffer
	_, err := f.Fetch(context.Background(), "file://"+filepath.ToSlash(p), &buf)
	require.NoError(t, err)
	assert.Equal(t, goodBytes, buf.Bytes())

	_, err = f.Fetch(context.Background(), "file:///definitely/not/here.gguf", &buf)
	assert.Equal(t, "not_found", FetchClass(err))

	_, err = f.Fetch(context.Background(), "ftp://example.invalid/x", &buf)
	assert.Equal(t, "unsupported_scheme", FetchClass(err))
}

func TestFetchClass(t *testing.T) {
	assert.Equal(t, "timeout", FetchClass(context.DeadlineExceeded))
	assert.Equal(t, "canceled", FetchClass(context.Canceled))
	assert.Equal(t, "unknown", FetchClass(errors.New("x")))
}

func TestEngine_EndToEndOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(goodBytes)
	}))
	defer srv.Close()
	p := filepath.Join(t.TempDir(), "m.gguf")
	e := New(Config{})
	out := e.VerifyOrRepair(context.Background(), p, goodSum, srv.URL+"/m.gguf")
	assert.Equal(t, StatusVerified, out.Status, out.Reason)
}
