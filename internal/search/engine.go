// Package search runs semantic search across the loaded collections.
package search

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/hyperjump/kashf/internal/attribution"
	"github.com/hyperjump/kashf/internal/collection"
	"github.com/hyperjump/kashf/internal/embedding"
	"github.com/hyperjump/kashf/internal/models"
	"github.com/hyperjump/kashf/internal/normalize"
	"github.com/hyperjump/kashf/internal/unified"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// EmbedderSource returns the embedder for a model name.
type EmbedderSource interface {
	For(model string) (embedding.Embedder, error)
}

// Engine runs one search across every selected collection. It owns no mutable
// state besides its worker pool; the index and attribution data are read-only.
type Engine struct {
	index       *unified.Index
	embedders   EmbedderSource
	attribution *attribution.Service
	pool        *ants.Pool
	logger      *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithPoolSize sets the worker pool size for per-collection searches.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(e *Engine) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if e.pool != nil {
			e.pool.Release()
		}
		e.pool = pool
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) error {
		if logger != nil {
			e.logger = logger
		}
		return nil
	}
}

// WithAttribution sets the attribution service used for media hits.
func WithAttribution(a *attribution.Service) Option {
	return func(e *Engine) error {
		e.attribution = a
		return nil
	}
}

// NewEngine creates a search engine over index.
func NewEngine(index *unified.Index, embedders EmbedderSource, opts ...Option) (*Engine, error) {
	if index == nil {
		return nil, errors.New("search: index is required")
	}
	if embedders == nil {
		return nil, errors.New("search: embedder source is required")
	}
	pool, err := ants.NewPool(max(runtime.NumCPU(), 1))
	if err != nil {
		return nil, err
	}
	e := &Engine{index: index, embedders: embedders, pool: pool, logger: zap.NewNop()}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			e.Release()
			return nil, err
		}
	}
	return e, nil
}

// Release releases the worker pool. The engine must not be used afterwards.
func (e *Engine) Release() {
	if e.pool != nil {
		e.pool.Release()
	}
}

// Index returns the index the engine searches.
func (e *Engine) Index() *unified.Index {
	return e.index
}

// Attribution returns the attribution service, which may be nil.
func (e *Engine) Attribution() *attribution.Service {
	return e.attribution
}

// Search embeds the query once per selected collection, searches each collection
// concurrently, and returns the best NumResults hits overall by score.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := ProcessQuery(query); err != nil {
		return nil, err
	}

	var targets []*collection.Collection
	for _, c := range e.index.Collections() {
		if query.Wants(c.Name()) && c.Size() > 0 {
			targets = append(targets, c)
		}
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []*models.SearchResult
		errs    []error
	)
	for _, c := range targets {
		c := c
		wg.Add(1)
		err := e.pool.Submit(func() {
			defer wg.Done()
			found, err := e.searchCollection(ctx, c, query.Query, query.NumResults)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			results = append(results, found...)
		})
		if err != nil {
			wg.Done()
			return nil, fmt.Errorf("failed to schedule search of %s: %w", c.Name(), err)
		}
	}
	wg.Wait()

	for _, err := range errs {
		if errors.Is(err, models.ErrEmbeddingService) {
			return nil, err
		}
		e.logger.Warn("collection search failed", zap.Error(err))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SimilarityScore > results[j].SimilarityScore
	})
	if len(results) > query.NumResults {
		results = results[:query.NumResults]
	}
	if results == nil {
		results = []*models.SearchResult{}
	}
	return &models.SearchResponse{
		Results:      results,
		Query:        query.Query,
		TotalResults: len(results),
		QueryTime:    time.Since(startTime).Milliseconds(),
	}, nil
}

func (e *Engine) searchCollection(ctx context.Context, c *collection.Collection, query string, k int) ([]*models.SearchResult, error) {
	cfg := c.Config
	q := normalize.ForCollection(query, cfg.ScriptNative)

	embedder, err := e.embedders.For(cfg.EmbeddingModel)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrEmbeddingService, c.Name(), err)
	}
	vec, err := embedder.Embed(ctx, q.TextForEmbedding)
	if err != nil {
		if errors.Is(err, models.ErrEmbeddingService) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", models.ErrEmbeddingService, c.Name(), err)
	}
	if len(vec) != c.Index.Dimensions() {
		return nil, fmt.Errorf("search %s: query has %d dimensions, index has %d",
			c.Name(), len(vec), c.Index.Dimensions())
	}

	hits, err := e.index.PerCollectionSearch(ctx, c.Name(), vec, min(k, c.Size()))
	if err != nil {
		return nil, err
	}
	out := make([]*models.SearchResult, 0, len(hits))
	for _, h := range hits {
		if r := e.format(cfg, h); r != nil {
			out = append(out, r)
		}
	}
	e.logger.Debug("collection searched",
		zap.String("collection", c.Name()),
		zap.String("embedded", q.TextForEmbedding),
		zap.Int("hits", len(out)))
	return out, nil
}
