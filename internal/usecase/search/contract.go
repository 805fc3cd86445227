package search

import (
	"context"

	"github.com/calder-ai/semsearch/internal/domain"
	"github.com/calder-ai/semsearch/internal/index"
)

// Index is the nearest-neighbor query contract. Kept abstract so the
// exhaustive flat index can later be swapped for an approximate one without
// touching callers.
type Index interface {
	Search(query []float32, k int) ([]index.Hit, error)
}

// DocumentReader reads corpus documents by position.
type DocumentReader interface {
	Get(position int) (domain.Document, error)
	Size() int
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
