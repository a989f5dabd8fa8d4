package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

// HNSWConfig holds graph parameters. Zero values use the defaults.
type HNSWConfig struct {
	M        int
	EfSearch int
}

// HNSWIndex is an approximate index backed by a coder/hnsw graph. It keeps the raw
// vectors so results carry exact squared L2 distances and Reconstruct works.
type HNSWIndex struct {
	dimensions int
	graph      *hnsw.Graph[uint64]
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewHNSWIndex creates an empty HNSW index.
func NewHNSWIndex(dimensions int, cfg HNSWConfig) (*HNSWIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 64
	}
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.EuclideanDistance
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25
	return &HNSWIndex{dimensions: dimensions, graph: graph}, nil
}

// Type returns the index type identifier.
func (h *HNSWIndex) Type() string {
	return string(IndexTypeHNSW)
}

// Add inserts vectors; each vector's key is its insertion position.
func (h *HNSWIndex) Add(ctx context.Context, vectors [][]float32) error {
	for _, v := range vectors {
		if len(v) != h.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(v), h.dimensions)
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, v := range vectors {
		if err := ctx.Err(); err != nil {
			return err
		}
		vec := make([]float32, len(v))
		copy(vec, v)
		key := uint64(len(h.vectors))
		h.vectors = append(h.vectors, vec)
		h.graph.Add(hnsw.MakeNode(key, vec))
	}
	return nil
}

// Search returns up to k approximate nearest neighbours.
func (h *HNSWIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != h.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), h.dimensions)
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if k <= 0 || h.graph.Len() == 0 {
		return nil, nil
	}
	if k > h.graph.Len() {
		k = h.graph.Len()
	}
	nodes := h.graph.Search(query, k)
	results := make([]*VectorResult, 0, len(nodes))
	for _, node := range nodes {
		d := SquaredL2(query, h.vectors[node.Key])
		results = append(results, &VectorResult{
			Position: int(node.Key),
			Distance: d,
			Score:    ScoreFromDistance(d),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Position < results[j].Position
	})
	return results, nil
}

// Reconstruct returns a copy of the vector at position i.
func (h *HNSWIndex) Reconstruct(i int) ([]float32, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if i < 0 || i >= len(h.vectors) {
		return nil, fmt.Errorf("reconstruct %d: %w", i, ErrOutOfRange)
	}
	out := make([]float32, h.dimensions)
	copy(out, h.vectors[i])
	return out, nil
}

// Size returns the number of vectors in the index.
func (h *HNSWIndex) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.vectors)
}

// Dimensions returns the vector dimension.
func (h *HNSWIndex) Dimensions() int {
	return h.dimensions
}

// Close drops the graph.
func (h *HNSWIndex) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.graph = hnsw.NewGraph[uint64]()
	h.vectors = nil
	return nil
}
