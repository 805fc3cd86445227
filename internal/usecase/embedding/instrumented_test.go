package embedding

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/calder-ai/semsearch/internal/domain"
)

type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
	calls  int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	return m.result, m.err
}

type mockBatchEmbedder struct {
	mockEmbedder
	batchCalls int
	batchSizes []int
}

func (m *mockBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	m.batchSizes = append(m.batchSizes, len(texts))
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = m.result.Embedding
	}
	return domain.BatchEmbeddingResult{
		Embeddings:  embeddings,
		TotalTokens: m.result.TotalTokens * len(texts),
	}, nil
}

func TestInstrumented_Embed(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:   []float32{1, 2, 3},
		TotalTokens: 4,
	}}
	emb := NewInstrumentedEmbedder(inner, "test", "test-model", zap.NewNop())

	result, err := emb.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(result.Embedding) != 3 || result.TotalTokens != 4 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestInstrumented_EmbedError(t *testing.T) {
	wantErr := errors.New("provider down")
	emb := NewInstrumentedEmbedder(&mockEmbedder{err: wantErr}, "test", "test-model", zap.NewNop())

	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped inner error, got %v", err)
	}
}

func TestInstrumented_BatchEmbedChunks(t *testing.T) {
	inner := &mockBatchEmbedder{mockEmbedder: mockEmbedder{
		result: domain.EmbeddingResult{Embedding: []float32{1}, TotalTokens: 1},
	}}
	emb := NewInstrumentedEmbedder(inner, "test", "test-model", zap.NewNop())

	texts := make([]string, DefaultMaxAPIBatchSize+10)
	for i := range texts {
		texts[i] = "doc"
	}

	result, err := emb.BatchEmbed(context.Background(), texts)
	if err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}
	if len(result.Embeddings) != len(texts) {
		t.Fatalf("embeddings = %d, want %d", len(result.Embeddings), len(texts))
	}
	if inner.batchCalls != 2 {
		t.Errorf("batch calls = %d, want 2", inner.batchCalls)
	}
	if inner.batchSizes[0] != DefaultMaxAPIBatchSize || inner.batchSizes[1] != 10 {
		t.Errorf("batch sizes = %v", inner.batchSizes)
	}
	if result.TotalTokens != len(texts) {
		t.Errorf("total tokens = %d, want %d", result.TotalTokens, len(texts))
	}
}

func TestInstrumented_BatchEmbedFallback(t *testing.T) {
	// Inner without native batch support goes through per-text fallback.
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}, TotalTokens: 2}}
	emb := NewInstrumentedEmbedder(inner, "test", "test-model", zap.NewNop())

	result, err := emb.BatchEmbed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("inner calls = %d, want 3", inner.calls)
	}
	if result.TotalTokens != 6 {
		t.Errorf("total tokens = %d, want 6", result.TotalTokens)
	}
}

func TestInstrumented_BatchEmbedEmpty(t *testing.T) {
	emb := NewInstrumentedEmbedder(&mockEmbedder{}, "test", "test-model", zap.NewNop())

	result, err := emb.BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("BatchEmbed(nil): %v", err)
	}
	if len(result.Embeddings) != 0 {
		t.Errorf("expected empty result, got %d embeddings", len(result.Embeddings))
	}
}
