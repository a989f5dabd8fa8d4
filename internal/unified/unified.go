// Package unified merges every loaded collection into one combined vector index while
// keeping per-collection search available.
package unified

import (
	"context"
	"fmt"

	"github.com/hyperjump/kashf/internal/collection"
	"github.com/hyperjump/kashf/internal/models"
	"github.com/hyperjump/kashf/internal/vector"
	"go.uber.org/zap"
)

// MaxK is the largest number of hits a single search returns.
const MaxK = models.MaxNumResults

// Entry identifies one vector of the combined index.
type Entry struct {
	Collection string
	LocalIndex int
	Record     models.MetadataRecord
}

// Hit is a search result. Distance is squared L2 and Score is 1/(1+Distance).
type Hit struct {
	Distance float32
	Score    float64
	Entry    Entry
}

// Index is the combined index plus the collections it was built from. It is
// append-only during Build and read-only afterwards.
type Index struct {
	combined    vector.VectorIndex
	entries     []Entry
	collections map[string]*collection.Collection
	order       []string
}

// Build copies every stored vector of collections into a combined index of
// indexType. Vectors are reconstructed, never re-embedded. Collections whose
// dimension differs from the first non-empty one stay searchable on their own but
// are left out of the combined index.
func Build(ctx context.Context, collections []*collection.Collection, indexType string, logger *zap.Logger) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	idx := &Index{collections: make(map[string]*collection.Collection, len(collections))}
	for _, c := range collections {
		idx.collections[c.Name()] = c
		idx.order = append(idx.order, c.Name())
		if c.Size() == 0 {
			continue
		}
		if idx.combined == nil {
			combined, err := vector.NewVectorIndex(indexType, c.Index.Dimensions())
			if err != nil {
				return nil, err
			}
			idx.combined = combined
		}
		if c.Index.Dimensions() != idx.combined.Dimensions() {
			logger.Warn("collection excluded from combined index",
				zap.String("collection", c.Name()),
				zap.Int("dimensions", c.Index.Dimensions()),
				zap.Int("expected", idx.combined.Dimensions()))
			continue
		}
		vecs := make([][]float32, c.Size())
		for i := range vecs {
			v, err := c.Index.Reconstruct(i)
			if err != nil {
				return nil, fmt.Errorf("reconstruct %s: %w", c.Name(), err)
			}
			vecs[i] = v
			idx.entries = append(idx.entries, Entry{Collection: c.Name(), LocalIndex: i, Record: c.Record(i)})
		}
		if err := idx.combined.Add(ctx, vecs); err != nil {
			return nil, fmt.Errorf("add %s: %w", c.Name(), err)
		}
	}
	logger.Info("combined index built", zap.Int("vectors", len(idx.entries)), zap.Int("collections", len(idx.order)))
	return idx, nil
}

// ClampK bounds k to [1, MaxK].
func ClampK(k int) int {
	if k < 1 {
		return 1
	}
	if k > MaxK {
		return MaxK
	}
	return k
}

// CombinedSearch searches across every collection in the combined index.
func (x *Index) CombinedSearch(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if x.combined == nil {
		return nil, nil
	}
	results, err := x.combined.Search(ctx, query, ClampK(k))
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{Distance: r.Distance, Score: r.Score, Entry: x.entries[r.Position]})
	}
	return hits, nil
}

// PerCollectionSearch searches one collection. An unknown or empty collection yields
// no hits.
func (x *Index) PerCollectionSearch(ctx context.Context, name string, query []float32, k int) ([]Hit, error) {
	c, ok := x.collections[name]
	if !ok || c.Size() == 0 {
		return nil, nil
	}
	k = ClampK(k)
	if k > c.Size() {
		k = c.Size()
	}
	results, err := c.Index.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", name, err)
	}
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{
			Distance: r.Distance,
			Score:    r.Score,
			Entry:    Entry{Collection: name, LocalIndex: r.Position, Record: c.Record(r.Position)},
		})
	}
	return hits, nil
}

// Collection returns a collection by name.
func (x *Index) Collection(name string) (*collection.Collection, bool) {
	c, ok := x.collections[name]
	return c, ok
}

// Collections returns the collections in build order.
func (x *Index) Collections() []*collection.Collection {
	out := make([]*collection.Collection, 0, len(x.order))
	for _, name := range x.order {
		out = append(out, x.collections[name])
	}
	return out
}

// Size returns the number of vectors in the combined index.
func (x *Index) Size() int {
	return len(x.entries)
}

// Entry returns the combined entry at position i.
func (x *Index) Entry(i int) (Entry, bool) {
	if i < 0 || i >= len(x.entries) {
		return Entry{}, false
	}
	return x.entries[i], true
}
