package domain

// Document is one corpus record. Documents are produced offline, loaded once
// at startup, and never mutated while the process serves.
type Document struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// SearchResult is one ranked hit, built per query and never stored.
type SearchResult struct {
	ID      string  `json:"id"`
	Snippet string  `json:"text_snippet"`
	Score   float64 `json:"score"`
}

// Snippet returns a prefix of text bounded to maxRunes runes. Cutting on
// runes keeps multi-byte text intact.
func Snippet(text string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes])
}
