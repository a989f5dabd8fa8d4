package collection

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyperjump/kashf/internal/config"
	"github.com/hyperjump/kashf/internal/models"
	"github.com/hyperjump/kashf/internal/vector"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Source labels for where an artifact was loaded from.
const (
	SourceRemote = "remote"
	SourceLocal  = "local"
	SourceCache  = "cache"
)

// maxParallelLoads bounds concurrent collection loads.
const maxParallelLoads = 4

type entry struct {
	cfg  config.CollectionConfig
	once sync.Once
	coll *Collection
	err  error

	indexSource    string
	metadataSource string

	// set after once completes; readers that must not block check these
	ready    atomic.Pointer[Collection]
	finished atomic.Bool
}

// Status describes one configured collection.
type Status struct {
	Name           string `json:"name"`
	Kind           string `json:"kind"`
	Loaded         bool   `json:"loaded"`
	Size           int    `json:"size"`
	IndexType      string `json:"index_type,omitempty"`
	IndexSource    string `json:"index_source,omitempty"`
	MetadataSource string `json:"metadata_source,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Store loads each configured collection at most once. Concurrent Load calls for the
// same collection wait for the first one and share its result.
type Store struct {
	downloader *Downloader
	useCloud   bool
	indexType  string
	logger     *zap.Logger

	entries map[string]*entry
	order   []string
}

// NewStore creates a store for the collections in cfg.
func NewStore(cfg *config.Config, downloader *Downloader, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		downloader: downloader,
		useCloud:   cfg.UseCloudOrDefault(),
		indexType:  cfg.Search.IndexType,
		logger:     logger,
		entries:    make(map[string]*entry, len(cfg.Collections)),
	}
	for _, c := range cfg.Collections {
		if _, dup := s.entries[c.Name]; dup {
			logger.Warn("duplicate collection name ignored", zap.String("collection", c.Name))
			continue
		}
		s.entries[c.Name] = &entry{cfg: c}
		s.order = append(s.order, c.Name)
	}
	return s
}

// NewStaticStore returns a store holding already-built collections.
func NewStaticStore(collections ...*Collection) *Store {
	s := &Store{logger: zap.NewNop(), entries: make(map[string]*entry)}
	for _, c := range collections {
		e := &entry{cfg: c.Config}
		coll := c
		e.once.Do(func() { e.coll = coll })
		e.ready.Store(coll)
		e.finished.Store(true)
		s.entries[c.Name()] = e
		s.order = append(s.order, c.Name())
	}
	return s
}

// Load returns the named collection, loading it on first use.
func (s *Store) Load(ctx context.Context, name string) (*Collection, error) {
	e, ok := s.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown collection %q", models.ErrCollectionUnavailable, name)
	}
	e.once.Do(func() {
		defer e.finished.Store(true)
		start := time.Now()
		e.coll, e.err = s.load(ctx, e)
		if e.err != nil {
			s.logger.Warn("collection unavailable", zap.String("collection", name), zap.Error(e.err))
			return
		}
		s.logger.Info("collection loaded",
			zap.String("collection", name),
			zap.Int("size", e.coll.Size()),
			zap.String("index_source", e.indexSource),
			zap.Duration("took", time.Since(start)))
		e.ready.Store(e.coll)
	})
	return e.coll, e.err
}

// LoadAll loads every configured collection in parallel and returns those that
// loaded, in configuration order. Failures are logged and skipped.
func (s *Store) LoadAll(ctx context.Context) []*Collection {
	var g errgroup.Group
	g.SetLimit(maxParallelLoads)
	for _, name := range s.order {
		name := name
		g.Go(func() error {
			s.Load(ctx, name)
			return nil
		})
	}
	g.Wait()
	return s.Loaded()
}

// Loaded returns the collections loaded so far, in configuration order.
func (s *Store) Loaded() []*Collection {
	var out []*Collection
	for _, name := range s.order {
		if c, ok := s.Get(name); ok {
			out = append(out, c)
		}
	}
	return out
}

// Get returns the named collection if it has finished loading successfully. It never
// triggers or waits for a load.
func (s *Store) Get(name string) (*Collection, bool) {
	e, ok := s.entries[name]
	if !ok {
		return nil, false
	}
	coll := e.ready.Load()
	return coll, coll != nil
}

// Status reports every configured collection.
func (s *Store) Status() []Status {
	out := make([]Status, 0, len(s.order))
	for _, name := range s.order {
		e := s.entries[name]
		c, loaded := s.Get(name)
		st := Status{Name: name, Kind: e.cfg.Kind, Loaded: loaded}
		if e.finished.Load() {
			st.IndexSource, st.MetadataSource = e.indexSource, e.metadataSource
		}
		if loaded {
			st.Size = c.Size()
			st.IndexType = c.Index.Type()
		} else if e.finished.Load() && e.err != nil {
			st.Error = e.err.Error()
		}
		out = append(out, st)
	}
	return out
}

// Configured returns the configured collection names in order.
func (s *Store) Configured() []string {
	return append([]string(nil), s.order...)
}

// Sources returns the remote URLs of a collection.
func (s *Store) Sources(name string) (indexURL, metadataURL string) {
	if e, ok := s.entries[name]; ok {
		return e.cfg.IndexURL, e.cfg.MetadataURL
	}
	return "", ""
}

func (s *Store) load(ctx context.Context, e *entry) (*Collection, error) {
	cc := e.cfg
	indexPath, indexSrc, err := s.resolve(ctx, cc.IndexURL, cc.CacheName+".faiss", cc.LocalIndexPaths)
	if err != nil {
		return nil, err
	}
	metaPath, metaSrc, err := s.resolve(ctx, cc.MetadataURL, cc.CacheName+".json", cc.LocalMetadataPaths)
	if err != nil {
		return nil, err
	}
	e.indexSource, e.metadataSource = indexSrc, metaSrc

	flat, err := vector.LoadFAISSFile(indexPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrCollectionUnavailable, err)
	}
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrCollectionUnavailable, err)
	}
	records, err := ParseMetadata(data, cc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrCollectionUnavailable, filepath.Base(metaPath), err)
	}
	idx, err := vector.FromFlat(ctx, s.indexType, flat)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrCollectionUnavailable, err)
	}
	coll, adjusted := New(cc, idx, records)
	if adjusted > 0 {
		s.logger.Warn("metadata does not match index size",
			zap.String("collection", cc.Name),
			zap.Int("vectors", idx.Size()),
			zap.Int("records", len(records)))
	}
	return coll, nil
}

func (s *Store) resolve(ctx context.Context, url, cacheFile string, localPaths []string) (string, string, error) {
	return ResolveFile(ctx, s.downloader, s.useCloud, url, cacheFile, localPaths, s.logger)
}
