package collection

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hyperjump/kashf/internal/models"
	"go.uber.org/zap"
)

// ResolveFile finds a readable file for one artifact: the remote URL (downloaded into
// the cache as cacheFile) when useCloud is set, then each local path, then a copy
// cached by an earlier run. dl may be nil to skip the cache entirely.
func ResolveFile(ctx context.Context, dl *Downloader, useCloud bool, url, cacheFile string, localPaths []string, logger *zap.Logger) (path, source string, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var cached string
	if dl != nil {
		cached = filepath.Join(dl.CacheDir(), cacheFile)
	}
	if useCloud && url != "" && dl != nil {
		err := dl.Fetch(ctx, url, cached)
		if err == nil {
			return cached, SourceRemote, nil
		}
		logger.Warn("remote source failed, trying local paths", zap.String("url", url), zap.Error(err))
	}
	for _, p := range localPaths {
		if fileExists(p) {
			return p, SourceLocal, nil
		}
	}
	if cached != "" && fileExists(cached) {
		return cached, SourceCache, nil
	}
	return "", "", fmt.Errorf("%w: no source for %s", models.ErrCollectionUnavailable, cacheFile)
}
