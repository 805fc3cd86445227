package domain

import (
	"context"
	"errors"
	"testing"
)

type recordingEmbedder struct {
	inputs []string
	err    error
}

func (m *recordingEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	if m.err != nil {
		return EmbeddingResult{}, m.err
	}
	m.inputs = append(m.inputs, text)
	return EmbeddingResult{Embedding: []float32{float32(len(text))}, TotalTokens: 1}, nil
}

func TestInstructionEmbedder_Embed(t *testing.T) {
	inner := &recordingEmbedder{}
	e := NewInstructionEmbedder(inner, "query: ")

	if _, err := e.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	if len(inner.inputs) != 1 || inner.inputs[0] != "query: hello" {
		t.Errorf("inner received %v, want [query: hello]", inner.inputs)
	}
}

func TestInstructionEmbedder_EmbedError(t *testing.T) {
	wantErr := errors.New("provider down")
	e := NewInstructionEmbedder(&recordingEmbedder{err: wantErr}, "query: ")

	_, err := e.Embed(context.Background(), "hello")
	if !errors.Is(err, wantErr) {
		t.Errorf("Embed() error = %v, want wrapped %v", err, wantErr)
	}
}

func TestInstructionEmbedder_BatchEmbedFallback(t *testing.T) {
	inner := &recordingEmbedder{}
	e := NewInstructionEmbedder(inner, "passage: ")

	res, err := e.BatchEmbed(context.Background(), []string{"a", "bb"})
	if err != nil {
		t.Fatalf("BatchEmbed() error = %v", err)
	}

	if len(res.Embeddings) != 2 {
		t.Fatalf("got %d embeddings, want 2", len(res.Embeddings))
	}
	if res.TotalTokens != 2 {
		t.Errorf("TotalTokens = %d, want 2", res.TotalTokens)
	}
	want := []string{"passage: a", "passage: bb"}
	for i, in := range inner.inputs {
		if in != want[i] {
			t.Errorf("inner input[%d] = %q, want %q", i, in, want[i])
		}
	}
}

func TestBatchFallback_ErrorIncludesIndex(t *testing.T) {
	wantErr := errors.New("boom")
	_, err := BatchFallback(context.Background(), &recordingEmbedder{err: wantErr}, []string{"x"})
	if !errors.Is(err, wantErr) {
		t.Errorf("BatchFallback() error = %v, want wrapped %v", err, wantErr)
	}
}

func TestSnippet(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxRunes int
		want     string
	}{
		{"shorter than limit", "hello", 10, "hello"},
		{"exactly at limit", "hello", 5, "hello"},
		{"truncated", "hello world", 5, "hello"},
		{"multi-byte runes", "привет мир", 6, "привет"},
		{"zero limit", "hello", 0, ""},
		{"empty text", "", 200, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Snippet(tt.text, tt.maxRunes); got != tt.want {
				t.Errorf("Snippet(%q, %d) = %q, want %q", tt.text, tt.maxRunes, got, tt.want)
			}
		})
	}
}
