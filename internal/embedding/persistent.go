package embedding

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

const storeKeyPrefix = "emb:"

// Store is an on-disk embedding cache shared by all models. Keys include the model
// name, so one store serves every embedder.
type Store struct {
	db     *badger.DB
	logger *zap.Logger
}

type badgerLogger struct {
	s *zap.SugaredLogger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(msg string, args ...any)   { l.s.Errorf(msg, args...) }
func (l *badgerLogger) Warningf(msg string, args ...any) { l.s.Warnf(msg, args...) }
func (l *badgerLogger) Infof(msg string, args ...any)    { l.s.Debugf(msg, args...) }
func (l *badgerLogger) Debugf(msg string, args ...any)   { l.s.Debugf(msg, args...) }

// OpenStore opens (creating if needed) a badger database at dir. An empty dir opens
// an in-memory store.
func OpenStore(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create embedding store dir: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &badgerLogger{s: logger.Named("badger").Sugar()}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding store: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Get returns the stored vector for model and text.
func (s *Store) Get(model, text string) ([]float32, bool, error) {
	var vec []float32
	tx := s.db.NewTransaction(false)
	defer tx.Discard()
	item, err := tx.Get(storeKey(model, text))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	err = item.Value(func(val []byte) error {
		vec, err = decodeVector(val)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

// Put stores vec for model and text.
func (s *Store) Put(model, text string, vec []float32) error {
	tx := s.db.NewTransaction(true)
	defer tx.Discard()
	if err := tx.Set(storeKey(model, text), encodeVector(vec)); err != nil {
		return err
	}
	return tx.Commit()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func storeKey(model, text string) []byte {
	return []byte(storeKeyPrefix + CacheKey(model, text))
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("corrupt embedding record of %d bytes", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return vec, nil
}

// PersistentEmbedder serves embeddings from a Store before asking the inner embedder.
// Store failures are logged and never fail a request.
type PersistentEmbedder struct {
	inner Embedder
	store *Store
}

// NewPersistentEmbedder wraps inner with store. The store is not closed by Close.
func NewPersistentEmbedder(inner Embedder, store *Store) *PersistentEmbedder {
	return &PersistentEmbedder{inner: inner, store: store}
}

// Embed returns the stored embedding or computes and stores it.
func (p *PersistentEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	model := p.inner.ModelName()
	vec, ok, err := p.store.Get(model, text)
	if err != nil {
		p.store.logger.Warn("embedding store read failed", zap.String("model", model), zap.Error(err))
	}
	if ok {
		return vec, nil
	}
	vec, err = p.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := p.store.Put(model, text, vec); err != nil {
		p.store.logger.Warn("embedding store write failed", zap.String("model", model), zap.Error(err))
	}
	return vec, nil
}

// EmbedBatch embeds each text through Embed so stored entries are reused.
func (p *PersistentEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (p *PersistentEmbedder) Dimensions() int   { return p.inner.Dimensions() }
func (p *PersistentEmbedder) ModelName() string { return p.inner.ModelName() }
func (p *PersistentEmbedder) Close() error      { return p.inner.Close() }
