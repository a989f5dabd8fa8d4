package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// FlatIndex is an exact brute-force index over contiguous float32 storage, the same
// layout a FAISS flat index uses.
type FlatIndex struct {
	dimensions int
	data       []float32
	mu         sync.RWMutex
}

// NewFlatIndex creates an empty flat index with the given dimension.
func NewFlatIndex(dimensions int) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &FlatIndex{dimensions: dimensions}, nil
}

func newFlatFromData(dimensions int, data []float32) *FlatIndex {
	return &FlatIndex{dimensions: dimensions, data: data}
}

// Type returns the index type identifier.
func (f *FlatIndex) Type() string {
	return string(IndexTypeFlat)
}

// Add appends vectors in order.
func (f *FlatIndex) Add(ctx context.Context, vectors [][]float32) error {
	for _, v := range vectors {
		if len(v) != f.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(v), f.dimensions)
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range vectors {
		f.data = append(f.data, v...)
	}
	return nil
}

// Search returns the k nearest vectors. Equal distances keep insertion order.
func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), f.dimensions)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := len(f.data) / f.dimensions
	if k <= 0 || n == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hits := make([]*VectorResult, n)
	for i := 0; i < n; i++ {
		d := SquaredL2(query, f.data[i*f.dimensions:(i+1)*f.dimensions])
		hits[i] = &VectorResult{Position: i, Distance: d}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if k > n {
		k = n
	}
	hits = hits[:k]
	for _, h := range hits {
		h.Score = ScoreFromDistance(h.Distance)
	}
	return hits, nil
}

// Reconstruct returns a copy of the vector at position i.
func (f *FlatIndex) Reconstruct(i int) ([]float32, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if i < 0 || i >= len(f.data)/f.dimensions {
		return nil, fmt.Errorf("reconstruct %d: %w", i, ErrOutOfRange)
	}
	out := make([]float32, f.dimensions)
	copy(out, f.data[i*f.dimensions:])
	return out, nil
}

// Size returns the number of vectors in the index.
func (f *FlatIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.data) / f.dimensions
}

// Dimensions returns the vector dimension.
func (f *FlatIndex) Dimensions() int {
	return f.dimensions
}

// Close releases the stored vectors.
func (f *FlatIndex) Close() error {
	f.mu.Lock()
	f.data = nil
	f.mu.Unlock()
	return nil
}
