package domain

import "context"

// Chunk is a contiguous window of a source document. Offset and Length are
// counted in runes.
type Chunk struct {
	Index  int
	Text   string
	Offset int
	Length int
}

// SearchResult represents a stored chunk with its cosine similarity to a query.
type SearchResult struct {
	Index int
	Text  string
	Score float64
}

// SourceFingerprint identifies the document and chunking parameters a store
// was built from. Resume is only safe when both match.
type SourceFingerprint struct {
	Digest  string `json:"sha256"`
	Chunker string `json:"chunker"`
}

// Embedder converts free text into a numeric vector representation.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits document text into an ordered, deterministic chunk sequence.
type Chunker interface {
	Chunk(text string) ([]Chunk, error)
	// Signature describes the chunker and its parameters. Two chunkers with the
	// same signature produce identical chunks for identical input.
	Signature() string
}

// Searcher answers top-k nearest neighbour queries.
type Searcher interface {
	Search(query []float32, k int) ([]SearchResult, error)
}
