// Command buildindex produces the corpus pair consumed by the semsearch
// server: a documents.json collection and a position-aligned vector index
// snapshot. Run it offline whenever the corpus changes; the server only ever
// reads the result.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/calder-ai/semsearch/internal/config"
	"github.com/calder-ai/semsearch/internal/docstore"
	"github.com/calder-ai/semsearch/internal/domain"
	"github.com/calder-ai/semsearch/internal/index"
	logpkg "github.com/calder-ai/semsearch/internal/logger"
	"github.com/calder-ai/semsearch/internal/metrics"
	openaiEmb "github.com/calder-ai/semsearch/internal/transport/openai"
	embeddinguc "github.com/calder-ai/semsearch/internal/usecase/embedding"
)

func main() {
	generate := flag.Int("generate", 0, "generate N synthetic documents instead of reading an existing collection")
	flag.Parse()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	metrics.RegisterEmbeddingMetrics()

	if *generate > 0 {
		if err := writeSyntheticCorpus(cfg.Corpus.DocumentsFile, *generate); err != nil {
			logger.Fatal("Failed to generate synthetic corpus", zap.Error(err))
		}
		logger.Info("Generated synthetic corpus",
			zap.Int("documents", *generate),
			zap.String("path", cfg.Corpus.DocumentsFile),
		)
	}

	store, err := docstore.Load(cfg.Corpus.DocumentsFile)
	if err != nil {
		logger.Fatal("Failed to load document collection", zap.Error(err))
	}
	logger.Info("Loaded document collection", zap.Int("documents", store.Size()))

	embedder := buildDocumentEmbedder(cfg, logger)

	texts := make([]string, store.Size())
	for i := range texts {
		doc, err := store.Get(i)
		if err != nil {
			logger.Fatal("Failed to read document", zap.Int("position", i), zap.Error(err))
		}
		texts[i] = doc.Text
	}

	logger.Info("Embedding corpus",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("documents", len(texts)),
	)
	result, err := embedder.BatchEmbed(context.Background(), texts)
	if err != nil {
		logger.Fatal("Failed to embed corpus", zap.Error(err))
	}

	idx, err := index.Build(result.Embeddings)
	if err != nil {
		logger.Fatal("Failed to build vector index", zap.Error(err))
	}
	if idx.Count() > 0 && idx.Dim() != cfg.Embedding.Dimensions {
		logger.Fatal("Provider returned unexpected dimensions",
			zap.Int("got", idx.Dim()),
			zap.Int("want", cfg.Embedding.Dimensions),
		)
	}

	if err := idx.WriteFile(cfg.Corpus.IndexFile); err != nil {
		logger.Fatal("Failed to write index snapshot", zap.Error(err))
	}

	logger.Info("Index snapshot written",
		zap.String("path", cfg.Corpus.IndexFile),
		zap.Int("vectors", idx.Count()),
		zap.Int("dimensions", idx.Dim()),
		zap.Int("total_tokens", result.TotalTokens),
	)
}

// buildDocumentEmbedder assembles the offline chain: OpenAI -> Instrumented -> Instruction.
// No cache: every document is embedded exactly once per build.
func buildDocumentEmbedder(cfg config.Config, logger *zap.Logger) domain.BatchEmbedder {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	instrumented := embeddinguc.NewInstrumentedEmbedder(
		base, cfg.Embedding.Provider, cfg.Embedding.Model, logger,
	)

	if cfg.Embedding.DocumentInstruction != "" {
		return domain.NewInstructionEmbedder(instrumented, cfg.Embedding.DocumentInstruction)
	}

	return instrumented
}

var syntheticTopics = []string{
	"machine learning",
	"artificial intelligence",
	"natural language processing",
	"deep learning",
	"data engineering",
	"cloud computing",
	"finance analytics",
	"healthcare systems",
	"e-commerce platforms",
	"cybersecurity",
}

// writeSyntheticCorpus produces a deterministic demo collection for local runs.
func writeSyntheticCorpus(path string, n int) error {
	docs := make([]domain.Document, n)
	for i := range docs {
		topic := syntheticTopics[i%len(syntheticTopics)]
		docs[i] = domain.Document{
			ID: fmt.Sprintf("doc_%d", i+1),
			Text: fmt.Sprintf(
				"This document discusses concepts related to %s. "+
					"It provides insights and practical examples in %s applications.",
				topic, topic,
			),
		}
	}

	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal corpus: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write corpus: %w", err)
	}
	return nil
}
