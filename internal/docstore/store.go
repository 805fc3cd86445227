// Package docstore holds the read-only document collection, addressed by the
// positional index shared with the vector index.
package docstore

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/calder-ai/semsearch/internal/domain"
)

// Store is an ordered, immutable document collection. Position i corresponds
// to row i of the vector index snapshot built from the same corpus.
type Store struct {
	docs []domain.Document
}

// New wraps an already-ordered document slice.
func New(docs []domain.Document) *Store {
	return &Store{docs: docs}
}

// Load reads a JSON array of {id, text} records from path. Records missing
// an id are rejected: positions would silently drift from the index.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("docstore: read %s: %w", path, err)
	}

	var docs []domain.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("docstore: parse %s: %w: %w", path, domain.ErrCorpusCorrupt, err)
	}

	for i, doc := range docs {
		if doc.ID == "" {
			return nil, fmt.Errorf("docstore: record %d has empty id: %w", i, domain.ErrCorpusCorrupt)
		}
	}

	return &Store{docs: docs}, nil
}

// Get returns the document at the given position. An out-of-range position
// is an internal consistency violation, never a user-facing condition.
func (s *Store) Get(position int) (domain.Document, error) {
	if position < 0 || position >= len(s.docs) {
		return domain.Document{}, fmt.Errorf("docstore: position %d out of range [0,%d)", position, len(s.docs))
	}
	return s.docs[position], nil
}

// Size returns the number of documents.
func (s *Store) Size() int {
	return len(s.docs)
}
