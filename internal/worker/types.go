package worker

import (
	"context"
)

// Chunk is the unit stored in the vector index. Content carries the
// search text of one chunk record.
type Chunk struct {
	Content    string
	Vector     []float32
	DocumentID string
	ChunkID    string
	ChunkIndex int
	Title      string
	Page       int
	Language   string
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorStore interface {
	StoreChunk(ctx context.Context, chunk Chunk) error
	DeleteChunksByDocument(ctx context.Context, documentID string) error
}
