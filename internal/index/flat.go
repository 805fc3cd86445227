// Package index provides an exact in-memory nearest-neighbor index over a
// flat contiguous buffer of float32 vectors.
package index

import (
	"fmt"
	"sort"

	"github.com/calder-ai/semsearch/internal/domain"
)

// Hit is one nearest-neighbor match: the vector's ingestion position and its
// squared Euclidean distance to the query.
type Hit struct {
	Position int
	Distance float64
}

// Flat is an exact exhaustive-scan vector index. Vectors live in one
// contiguous buffer, row i at data[i*dim : (i+1)*dim], positions assigned in
// append order. Read-only after Build/Load, so concurrent Search calls need
// no locking.
type Flat struct {
	data  []float32
	dim   int
	count int
}

// Build creates an index from vectors in input order, assigning positions
// 0..n-1. All vectors must share one dimension.
func Build(vectors [][]float32) (*Flat, error) {
	if len(vectors) == 0 {
		return &Flat{}, nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("index: zero-dimensional vector at position 0")
	}

	data := make([]float32, 0, len(vectors)*dim)
	for i, vec := range vectors {
		if len(vec) != dim {
			return nil, fmt.Errorf("index: vector at position %d has dim %d, want %d: %w",
				i, len(vec), dim, domain.ErrVectorDimMismatch)
		}
		data = append(data, vec...)
	}

	return &Flat{data: data, dim: dim, count: len(vectors)}, nil
}

// Dim returns the vector dimensionality, 0 for an empty index.
func (f *Flat) Dim() int { return f.dim }

// Count returns the number of stored vectors.
func (f *Flat) Count() int { return f.count }

// Search returns up to k hits ordered by ascending squared L2 distance, ties
// broken by lower position. The scan is exhaustive: O(n*dim) per query,
// exact by construction.
func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	if f.count == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("index: query dim %d, index dim %d: %w",
			len(query), f.dim, domain.ErrVectorDimMismatch)
	}

	hits := make([]Hit, f.count)
	for pos := 0; pos < f.count; pos++ {
		row := f.data[pos*f.dim : (pos+1)*f.dim]
		var d float64
		for j, q := range query {
			diff := float64(q) - float64(row[j])
			d += diff * diff
		}
		hits[pos] = Hit{Position: pos, Distance: d}
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Distance != hits[b].Distance {
			return hits[a].Distance < hits[b].Distance
		}
		return hits[a].Position < hits[b].Position
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Row returns the stored vector at the given position. The returned slice
// aliases index memory and must not be modified.
func (f *Flat) Row(pos int) ([]float32, error) {
	if pos < 0 || pos >= f.count {
		return nil, fmt.Errorf("index: position %d out of range [0,%d)", pos, f.count)
	}
	return f.data[pos*f.dim : (pos+1)*f.dim], nil
}
