package search

import (
	"context"
	"testing"

	"github.com/calder-ai/semsearch/internal/docstore"
	"github.com/calder-ai/semsearch/internal/domain"
	"github.com/calder-ai/semsearch/internal/index"
)

type mockEmbedder struct {
	vec    []float32
	err    error
	called int
	last   string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.called++
	m.last = text
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: 3}, nil
}

// newTestService builds a service over a real flat index and document store.
// Documents sit on the x axis at 1, 2, 3, ... so distances from a query
// vector are easy to reason about.
func newTestService(t *testing.T, docs []domain.Document, opts Options) (*Service, *mockEmbedder) {
	t.Helper()

	vectors := make([][]float32, len(docs))
	for i := range docs {
		vectors[i] = []float32{float32(i + 1), 0}
	}
	idx, err := index.Build(vectors)
	if err != nil {
		t.Fatalf("index.Build: %v", err)
	}

	emb := &mockEmbedder{vec: []float32{0, 0}}
	return New(idx, docstore.New(docs), emb, opts), emb
}

func testCorpus() []domain.Document {
	return []domain.Document{
		{ID: "doc_1", Text: "cats are great pets"},
		{ID: "doc_2", Text: "stock markets rose today"},
		{ID: "doc_3", Text: "deep learning for search"},
	}
}

func defaultOptions() Options {
	return Options{DefaultTopK: 5, MaxTopK: 100, SnippetRunes: 200}
}
