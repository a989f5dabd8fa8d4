package collection

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperjump/kashf/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDownloader(t *testing.T, retries int) *Downloader {
	t.Helper()
	return NewDownloader(t.TempDir(), config.DownloadConfig{
		MaxRetries:   retries,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Timeout:      5 * time.Second,
	}, nil)
}

func TestDownloader_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload"))
	}))
	defer srv.Close()
	d := testDownloader(t, 0)
	dest := filepath.Join(d.CacheDir(), "a.json")

	require.NoError(t, d.Fetch(context.Background(), srv.URL, dest))
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
	_, err = os.Stat(dest + ".part")
	assert.True(t, os.IsNotExist(err), "temporary file must be renamed away")
}

func TestDownloader_SkipsExisting(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("new"))
	}))
	defer srv.Close()
	d := testDownloader(t, 0)
	dest := filepath.Join(d.CacheDir(), "a.json")
	require.NoError(t, os.WriteFile(dest, []byte("old"), 0644))

	require.NoError(t, d.Fetch(context.Background(), srv.URL, dest))
	assert.Zero(t, hits.Load())
}

func TestDownloader_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()
	d := testDownloader(t, 3)

	require.NoError(t, d.Fetch(context.Background(), srv.URL, filepath.Join(d.CacheDir(), "x")))
	assert.Equal(t, int32(3), hits.Load())
}

func TestDownloader_NotFoundFailsFast(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()
	d := testDownloader(t, 3)

	err := d.Fetch(context.Background(), srv.URL, filepath.Join(d.CacheDir(), "x"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, int32(1), hits.Load())
}

func TestDownloader_GivesUp(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	d := testDownloader(t, 2)
	dest := filepath.Join(d.CacheDir(), "x")

	err := d.Fetch(context.Background(), srv.URL, dest)
	require.Error(t, err)
	assert.Equal(t, int32(3), hits.Load())
	assert.False(t, fileExists(dest))
}

func TestDownloader_TruncatedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.Write([]byte("short"))
	}))
	defer srv.Close()
	d := testDownloader(t, 0)
	dest := filepath.Join(d.CacheDir(), "x")

	require.Error(t, d.Fetch(context.Background(), srv.URL, dest))
	assert.False(t, fileExists(dest))
	assert.False(t, fileExists(dest+".part"))
}
