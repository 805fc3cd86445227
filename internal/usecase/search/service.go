// Package search orchestrates a semantic query: embed, scan the index, join
// hits back to documents, convert distances to scores.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/calder-ai/semsearch/internal/domain"
	"github.com/calder-ai/semsearch/internal/logger"
	"github.com/calder-ai/semsearch/internal/metrics"

	"go.uber.org/zap"
)

// Options bound result shaping.
type Options struct {
	DefaultTopK  int
	MaxTopK      int
	SnippetRunes int
}

// Service executes semantic searches over the corpus. All referenced state
// is read-only after construction, so one instance serves concurrent
// requests without locking.
type Service struct {
	index Index
	docs  DocumentReader
	embed Embedder
	opts  Options
}

// New creates a search service.
func New(idx Index, docs DocumentReader, embed Embedder, opts Options) *Service {
	return &Service{index: idx, docs: docs, embed: embed, opts: opts}
}

// Search returns up to k results ranked by descending score. k <= 0 falls
// back to the configured default; k is clamped to the corpus size and the
// configured maximum. Results are deterministic for a fixed corpus and model.
func (s *Service) Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	start := time.Now()

	results, err := s.search(ctx, query, k)

	switch {
	case err == nil:
		metrics.SearchQueriesTotal.WithLabelValues("success").Inc()
		metrics.SearchDuration.Observe(time.Since(start).Seconds())
		metrics.SearchResultsReturned.Observe(float64(len(results)))
	case errors.Is(err, domain.ErrInvalidQuery):
		metrics.SearchQueriesTotal.WithLabelValues("invalid").Inc()
	default:
		metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
	}

	return results, err
}

func (s *Service) search(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, fmt.Errorf("query is empty: %w", domain.ErrInvalidQuery)
	}

	if k <= 0 {
		k = s.opts.DefaultTopK
	}
	if s.opts.MaxTopK > 0 && k > s.opts.MaxTopK {
		k = s.opts.MaxTopK
	}
	if size := s.docs.Size(); k > size {
		k = size
	}

	embResult, err := s.embed.Embed(ctx, trimmed)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	hits, err := s.index.Search(embResult.Embedding, k)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(hits))
	for _, hit := range hits {
		doc, err := s.docs.Get(hit.Position)
		if err != nil {
			// Positions come from the index, which was size-checked against
			// the document store at startup.
			return nil, fmt.Errorf("resolve hit: %w", err)
		}
		results = append(results, domain.SearchResult{
			ID:      doc.ID,
			Snippet: domain.Snippet(doc.Text, s.opts.SnippetRunes),
			Score:   distanceToScore(hit.Distance),
		})
	}

	logger.FromContext(ctx).Debug("search completed",
		zap.Int("k", k),
		zap.Int("results", len(results)),
		zap.Int("query_tokens", embResult.TotalTokens),
	)

	return results, nil
}

// distanceToScore maps a squared L2 distance to (0, 1], 1 at distance 0,
// strictly decreasing in distance. Callers depend on this exact range and
// monotonicity, not on raw distances.
func distanceToScore(distance float64) float64 {
	return 1 / (1 + distance)
}
