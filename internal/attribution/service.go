package attribution

import (
	"context"
	"fmt"
	"os"

	"github.com/hyperjump/kashf/internal/collection"
	"github.com/hyperjump/kashf/internal/config"
	"go.uber.org/zap"
)

const mappingCacheFile = "youtube_mapping.json"

// Service combines positional attribution with the title fallback. Either part may
// be missing; a zero Service attributes nothing.
type Service struct {
	resolver *Resolver
	titles   *TitleMatcher
}

// NewService wraps a resolver and title matcher. Both may be nil.
func NewService(resolver *Resolver, titles *TitleMatcher) *Service {
	return &Service{resolver: resolver, titles: titles}
}

// Load reads the mapping file and builds a resolver over corpus. A nil corpus yields
// a service with only the title fallback.
func Load(ctx context.Context, cfg config.AttributionConfig, useCloud bool, dl *collection.Downloader, corpus []string, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	path, source, err := collection.ResolveFile(ctx, dl, useCloud, cfg.MappingURL, mappingCacheFile, cfg.MappingPaths, logger)
	if err != nil {
		return nil, fmt.Errorf("attribution mapping: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read attribution mapping: %w", err)
	}
	mapping, titles, err := ParseMappingFile(data)
	if err != nil {
		return nil, err
	}

	svc := &Service{titles: titles}
	if corpus != nil {
		svc.resolver = NewResolver(corpus, mapping,
			WithLogger(logger),
			WithGapThreshold(cfg.GapWarnThreshold))
	}
	logger.Info("attribution mapping loaded",
		zap.String("source", source),
		zap.Int("positions", mapping.Len()),
		zap.Int("titles", titles.Len()),
		zap.Int("corpus", len(corpus)))
	return svc, nil
}

// Resolve attributes a fragment by corpus position.
func (s *Service) Resolve(fragment string) (Attribution, bool) {
	if s == nil || s.resolver == nil {
		return Attribution{}, false
	}
	return s.resolver.Resolve(fragment)
}

// MatchTitle guesses a video link from the fragment's title line.
func (s *Service) MatchTitle(content string) (string, bool) {
	if s == nil || s.titles == nil {
		return "", false
	}
	return s.titles.Match(content)
}

// Ready reports whether positional attribution is available.
func (s *Service) Ready() bool {
	return s != nil && s.resolver != nil
}
