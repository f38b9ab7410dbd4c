package vectorstore

import "docrag/internal/domain"

// Storage is a durable, append-only collection of (document, embedding)
// pairs. documents[i] corresponds to embeddings[i].
type Storage interface {
	Size() int
	// Dimension returns the established vector dimension, or 0 when empty.
	Dimension() int
	Append(text string, vector []float32) error
	// Save writes the complete current state as one atomic snapshot.
	Save() error
	Source() *domain.SourceFingerprint
	SetSource(fp *domain.SourceFingerprint)
	// Reset drops all pairs and the fingerprint. Nothing is persisted until Save.
	Reset()
}
