package embedding

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hyperjump/kashf/internal/config"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Registry hands out one embedder per model name, built on first use. All embedders
// share the rate limiter and the persistent store.
type Registry struct {
	cfg     config.EmbeddingConfig
	logger  *zap.Logger
	limiter *rate.Limiter
	store   *Store

	mu        sync.Mutex
	embedders map[string]Embedder
}

// NewRegistry creates a registry for cfg. It opens the persistent store when
// cfg.PersistentCachePath is set.
func NewRegistry(cfg config.EmbeddingConfig, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		cfg:       cfg,
		logger:    logger,
		limiter:   NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
		embedders: make(map[string]Embedder),
	}
	if cfg.PersistentCachePath != "" {
		store, err := OpenStore(cfg.PersistentCachePath, logger)
		if err != nil {
			return nil, err
		}
		r.store = store
	}
	return r, nil
}

// Configured reports whether embeddings can be requested at all.
func (r *Registry) Configured() bool {
	return r.cfg.Provider == "mock" || r.cfg.APIKey != ""
}

// For returns the embedder for model, or the default model when model is empty.
func (r *Registry) For(model string) (Embedder, error) {
	if model == "" {
		model = r.cfg.Model
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.embedders[model]; ok {
		return e, nil
	}
	e, err := r.build(model)
	if err != nil {
		return nil, err
	}
	r.embedders[model] = e
	r.logger.Debug("embedder ready", zap.String("model", model), zap.String("provider", r.cfg.Provider))
	return e, nil
}

// build stacks, innermost first: client, rate limiter, persistent store, LRU cache.
func (r *Registry) build(model string) (Embedder, error) {
	var base Embedder
	switch r.cfg.Provider {
	case "mock":
		base = NewMockEmbedderForModel(r.cfg.Dimensions, model)
	case "openai", "":
		client, err := NewOpenAIEmbedder(OpenAIConfig{
			APIKey:     r.cfg.APIKey,
			BaseURL:    r.cfg.BaseURL,
			Model:      model,
			Dimensions: r.cfg.Dimensions,
		}, r.logger)
		if err != nil {
			return nil, err
		}
		base = NewRateLimitedEmbedder(client, r.limiter)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", r.cfg.Provider)
	}
	if r.store != nil {
		base = NewPersistentEmbedder(base, r.store)
	}
	return NewCachedEmbedder(base, r.cfg.CacheSize), nil
}

// Models returns the names of the embedders built so far.
func (r *Registry) Models() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.embedders))
	for m := range r.embedders {
		out = append(out, m)
	}
	return out
}

// Close closes every embedder and the persistent store.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for m, e := range r.embedders {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(r.embedders, m)
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			errs = append(errs, err)
		}
		r.store = nil
	}
	return errors.Join(errs...)
}
