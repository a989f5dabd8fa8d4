package vector

import (
	"context"
	"fmt"
)

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeFlat is exact brute-force search, matching the shipped FAISS indices.
	IndexTypeFlat IndexType = "flat"
	// IndexTypeHNSW is approximate search over an HNSW graph; faster on large collections.
	IndexTypeHNSW IndexType = "hnsw"
)

// NewVectorIndex creates an empty vector index of the specified type.
// Supported types: "flat" (default), "hnsw".
func NewVectorIndex(indexType string, dimensions int) (VectorIndex, error) {
	switch IndexType(indexType) {
	case IndexTypeFlat, "":
		return NewFlatIndex(dimensions)
	case IndexTypeHNSW:
		return NewHNSWIndex(dimensions, HNSWConfig{})
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: flat, hnsw)", indexType)
	}
}

// FromFlat returns flat itself for the flat type, or a new index of indexType holding
// the same vectors in the same positions.
func FromFlat(ctx context.Context, indexType string, flat *FlatIndex) (VectorIndex, error) {
	if IndexType(indexType) == IndexTypeFlat || indexType == "" {
		return flat, nil
	}
	idx, err := NewVectorIndex(indexType, flat.Dimensions())
	if err != nil {
		return nil, err
	}
	n := flat.Size()
	vecs := make([][]float32, 0, n)
	for i := 0; i < n; i++ {
		v, err := flat.Reconstruct(i)
		if err != nil {
			return nil, err
		}
		vecs = append(vecs, v)
	}
	if err := idx.Add(ctx, vecs); err != nil {
		idx.Close()
		return nil, err
	}
	return idx, nil
}
