package domain

import "errors"

var (
	// ErrInvalidQuery signals an empty or malformed search query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrIndexCorrupt signals a missing or unreadable vector index snapshot.
	ErrIndexCorrupt = errors.New("vector index snapshot corrupt")
	// ErrCorpusCorrupt signals a missing or malformed document collection.
	ErrCorpusCorrupt = errors.New("document collection corrupt")
)
