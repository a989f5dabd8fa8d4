package collection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/hyperjump/kashf/internal/config"
	"go.uber.org/zap"
)

// RetryConfig configures download retries with exponential backoff.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// permanentError marks a failure that retrying cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// ErrNotFound is returned when the remote file does not exist.
var ErrNotFound = errors.New("remote file not found")

// Downloader fetches remote artifacts into a cache directory. Downloads hold an
// exclusive file lock so concurrent processes sharing the cache do not interleave.
type Downloader struct {
	client   *http.Client
	cacheDir string
	retry    RetryConfig
	logger   *zap.Logger
}

// NewDownloader creates a downloader writing under cacheDir.
func NewDownloader(cacheDir string, cfg config.DownloadConfig, logger *zap.Logger) *Downloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{
		client:   &http.Client{Timeout: cfg.Timeout},
		cacheDir: cacheDir,
		retry: RetryConfig{
			MaxRetries:   cfg.MaxRetries,
			InitialDelay: cfg.InitialDelay,
			MaxDelay:     cfg.MaxDelay,
			Multiplier:   2,
		},
		logger: logger,
	}
}

// CacheDir returns the directory downloads are written to.
func (d *Downloader) CacheDir() string {
	return d.cacheDir
}

// Fetch downloads url to dest unless dest already exists. A partial file is never
// left at dest: data goes to dest.part and is renamed once its length checks out.
func (d *Downloader) Fetch(ctx context.Context, url, dest string) error {
	if fileExists(dest) {
		d.logger.Debug("using cached file", zap.String("path", dest))
		return nil
	}
	if err := os.MkdirAll(d.cacheDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}
	lock := flock.New(filepath.Join(d.cacheDir, ".download.lock"))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire download lock: %w", err)
	}
	defer lock.Unlock()

	// another process may have finished while we waited
	if fileExists(dest) {
		return nil
	}
	start := time.Now()
	err := retry(ctx, d.retry, func(attempt int) error {
		if attempt > 0 {
			d.logger.Info("retrying download", zap.String("url", url), zap.Int("attempt", attempt+1))
		}
		return d.fetchOnce(ctx, url, dest)
	})
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	d.logger.Info("downloaded", zap.String("url", url), zap.String("path", dest), zap.Duration("took", time.Since(start)))
	return nil
}

func (d *Downloader) fetchOnce(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &permanentError{err}
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &permanentError{ErrNotFound}
	case resp.StatusCode >= 400:
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return &permanentError{err}
	}
	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return &permanentError{err}
	}
	n, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr == nil && resp.ContentLength >= 0 && n != resp.ContentLength {
		copyErr = fmt.Errorf("incomplete download: got %d of %d bytes", n, resp.ContentLength)
	}
	if copyErr != nil {
		os.Remove(tmp)
		return copyErr
	}
	return os.Rename(tmp, dest)
}

// retry runs fn until it succeeds, returns a permanent error, or runs out of attempts.
func retry(ctx context.Context, cfg RetryConfig, fn func(attempt int) error) error {
	delay := cfg.InitialDelay
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt >= cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return fmt.Errorf("failed after %d retries: %w", cfg.MaxRetries, lastErr)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
