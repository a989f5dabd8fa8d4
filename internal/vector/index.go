// Package vector provides nearest-neighbour indices over float32 vectors and the
// FAISS flat file codec used to ship them.
package vector

import (
	"context"
	"errors"
)

// ErrOutOfRange is returned by Reconstruct for a position outside the index.
var ErrOutOfRange = errors.New("position out of range")

// VectorIndex stores vectors by insertion position and answers k-nearest queries
// by squared L2 distance.
type VectorIndex interface {
	Add(ctx context.Context, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	// Reconstruct returns a copy of the vector stored at position i.
	Reconstruct(i int) ([]float32, error)
	Size() int
	Dimensions() int
	Type() string
	Close() error
}

// VectorResult is a single search hit. Results are ordered by Distance ascending.
type VectorResult struct {
	Position int
	Distance float32 // squared L2
	Score    float64 // 1/(1+Distance)
}
