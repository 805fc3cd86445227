package search

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/calder-ai/semsearch/internal/domain"
)

func TestSearch_RankedByScore(t *testing.T) {
	svc, emb := newTestService(t, testCorpus(), defaultOptions())

	results, err := svc.Search(context.Background(), "pets and animals", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if emb.called != 1 {
		t.Errorf("embedder called %d times, want 1", emb.called)
	}

	// Query embeds at origin; doc_1 sits closest on the x axis.
	if results[0].ID != "doc_1" {
		t.Errorf("top result = %s, want doc_1", results[0].ID)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not ordered by non-increasing score at %d: %f > %f",
				i, results[i].Score, results[i-1].Score)
		}
	}

	seen := map[string]bool{}
	for _, r := range results {
		if seen[r.ID] {
			t.Errorf("duplicate id %s in results", r.ID)
		}
		seen[r.ID] = true
		if r.Score <= 0 || r.Score > 1 {
			t.Errorf("score %f outside (0, 1]", r.Score)
		}
	}
}

func TestSearch_ScoreFormula(t *testing.T) {
	svc, emb := newTestService(t, testCorpus(), defaultOptions())
	emb.vec = []float32{1, 0} // identical to doc_1's vector

	results, err := svc.Search(context.Background(), "cats are great pets", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ID != "doc_1" {
		t.Errorf("top result = %s, want doc_1", results[0].ID)
	}
	// Distance 0 must map to score 1.
	if math.Abs(results[0].Score-1) > 1e-9 {
		t.Errorf("score for exact match = %f, want 1", results[0].Score)
	}
}

func TestSearch_Deterministic(t *testing.T) {
	svc, _ := newTestService(t, testCorpus(), defaultOptions())

	first, err := svc.Search(context.Background(), "query", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	second, err := svc.Search(context.Background(), "query", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	for i := range first {
		if first[i] != second[i] {
			t.Errorf("result %d differs across calls: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestSearch_InvalidQuery(t *testing.T) {
	svc, emb := newTestService(t, testCorpus(), defaultOptions())

	for _, query := range []string{"", "   ", "\t\n"} {
		_, err := svc.Search(context.Background(), query, 3)
		if !errors.Is(err, domain.ErrInvalidQuery) {
			t.Errorf("query %q: expected ErrInvalidQuery, got %v", query, err)
		}
	}
	if emb.called != 0 {
		t.Errorf("embedder must not run for invalid queries, called %d times", emb.called)
	}
}

func TestSearch_TrimsQueryBeforeEmbedding(t *testing.T) {
	svc, emb := newTestService(t, testCorpus(), defaultOptions())

	if _, err := svc.Search(context.Background(), "  pets  ", 1); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if emb.last != "pets" {
		t.Errorf("embedded %q, want trimmed %q", emb.last, "pets")
	}
}

func TestSearch_KClampedToCorpus(t *testing.T) {
	svc, _ := newTestService(t, testCorpus(), defaultOptions())

	results, err := svc.Search(context.Background(), "query", 50)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected all 3 corpus documents, got %d", len(results))
	}
}

func TestSearch_KDefaultsWhenNonPositive(t *testing.T) {
	opts := defaultOptions()
	opts.DefaultTopK = 2
	svc, _ := newTestService(t, testCorpus(), opts)

	results, err := svc.Search(context.Background(), "query", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected default top_k 2 results, got %d", len(results))
	}
}

func TestSearch_KCappedAtMax(t *testing.T) {
	docs := make([]domain.Document, 10)
	for i := range docs {
		docs[i] = domain.Document{ID: "doc_" + string(rune('a'+i)), Text: "text"}
	}
	opts := defaultOptions()
	opts.MaxTopK = 4
	svc, _ := newTestService(t, docs, opts)

	results, err := svc.Search(context.Background(), "query", 9)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 4 {
		t.Errorf("expected max_top_k 4 results, got %d", len(results))
	}
}

func TestSearch_SnippetBounded(t *testing.T) {
	long := strings.Repeat("x", 500)
	docs := []domain.Document{{ID: "doc_long", Text: long}}
	svc, _ := newTestService(t, docs, defaultOptions())

	results, err := svc.Search(context.Background(), "query", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results[0].Snippet) != 200 {
		t.Errorf("snippet length = %d, want 200", len(results[0].Snippet))
	}
}

func TestSearch_EmbedderError(t *testing.T) {
	svc, emb := newTestService(t, testCorpus(), defaultOptions())
	emb.err = domain.ErrEmbeddingProviderError

	_, err := svc.Search(context.Background(), "query", 3)
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected provider error to propagate, got %v", err)
	}
}

func TestSearch_EmptyCorpus(t *testing.T) {
	svc, _ := newTestService(t, nil, defaultOptions())

	results, err := svc.Search(context.Background(), "query", 3)
	if err != nil {
		t.Fatalf("Search on empty corpus: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestDistanceToScore(t *testing.T) {
	tests := []struct {
		distance float64
		want     float64
	}{
		{0, 1},
		{1, 0.5},
		{3, 0.25},
	}
	for _, tc := range tests {
		if got := distanceToScore(tc.distance); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("distanceToScore(%f) = %f, want %f", tc.distance, got, tc.want)
		}
	}
}
