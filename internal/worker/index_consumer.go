package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nsqio/go-nsq"

	"corpora/apps/backend/internal/middleware"
)

// IndexConsumer embeds chunk.index payloads and writes them to the vector
// store. Content already carries the chunk's search text, so the payload is
// embedded as-is.
type IndexConsumer struct {
	embedder Embedder
	store    VectorStore
}

func NewIndexConsumer(e Embedder, s VectorStore) *IndexConsumer {
	return &IndexConsumer{
		embedder: e,
		store:    s,
	}
}

func (h *IndexConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload ChunkIndexPayload
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		// Poison pill: invalid JSON, don't retry
		slog.Error("poison pill: invalid json", "error", err)
		return nil
	}

	ctx := context.Background()
	if payload.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, payload.CorrelationID)
	}

	if payload.DocumentID == "" || payload.ChunkID == "" {
		slog.ErrorContext(ctx, "missing required fields, dropping", "document_id", payload.DocumentID, "chunk_id", payload.ChunkID)
		return nil
	}

	embedCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	vec, err := h.embedder.Embed(embedCtx, payload.Content)
	if err != nil {
		slog.ErrorContext(ctx, "embedding failed", "error", err, "chunk_id", payload.ChunkID)
		return err // Retry
	}

	chunk := Chunk{
		Content:    payload.Content,
		Vector:     vec,
		DocumentID: payload.DocumentID,
		ChunkID:    payload.ChunkID,
		ChunkIndex: payload.ChunkIndex,
		Title:      payload.Title,
		Page:       payload.Page,
		Language:   payload.Language,
	}

	if err := h.store.StoreChunk(embedCtx, chunk); err != nil {
		slog.ErrorContext(ctx, "store chunk failed", "error", err, "chunk_id", payload.ChunkID)
		return err // Retry
	}

	slog.InfoContext(ctx, "chunk indexed", "document_id", payload.DocumentID, "chunk_index", payload.ChunkIndex)
	return nil
}
