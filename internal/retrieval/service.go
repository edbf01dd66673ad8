package retrieval

import (
	"context"
	"time"

	"corpora/apps/backend/internal/middleware"
	"corpora/apps/backend/internal/settings"
)

type SearchResult struct {
	Content    string                 `json:"content"`
	Score      float32                `json:"score"`
	Title      string                 `json:"title,omitempty"`
	DocumentID string                 `json:"documentId,omitempty"`
	ChunkID    string                 `json:"chunkId,omitempty"`
	ChunkIndex int                    `json:"chunkIndex,omitempty"`
	Page       int                    `json:"page,omitempty"`
	Language   string                 `json:"language,omitempty"`
	Metadata   map[string]interface{} `json:"metadata"`
}

type SearchOptions struct {
	Alpha      *float32
	Limit      *int
	DocumentID string
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorStore interface {
	Search(ctx context.Context, query string, vector []float32, alpha float32, limit int, documentID string) ([]SearchResult, error)
	GetChunksByDocument(ctx context.Context, documentID string) ([]SearchResult, error)
}

type Reranker interface {
	Rerank(ctx context.Context, query string, docs []string) ([]int, error)
}

type Service struct {
	embedder Embedder
	store    VectorStore
	reranker Reranker
	settings *settings.Service
	logger   *QueryLogger
}

func NewService(e Embedder, s VectorStore, r Reranker, set *settings.Service, l *QueryLogger) *Service {
	return &Service{embedder: e, store: s, reranker: r, settings: set, logger: l}
}

func (s *Service) Search(ctx context.Context, query string, opts *SearchOptions) ([]SearchResult, error) {
	start := time.Now()
	var finalDocs []SearchResult
	var err error

	defer func() {
		if s.logger != nil && err == nil {
			entry := QueryLogEntry{
				Query:         query,
				Results:       len(finalDocs),
				Reranked:      s.reranker != nil && len(finalDocs) > 0,
				Duration:      time.Since(start),
				CorrelationID: middleware.GetCorrelationID(ctx),
			}
			if opts != nil {
				entry.DocumentID = opts.DocumentID
			}
			s.logger.Log(entry)
		}
	}()

	// Get settings for defaults
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		// Fallback defaults if settings fail (shouldn't happen)
		cfg = &settings.Settings{SearchAlpha: 0.5, SearchTopK: 10}
	}

	alpha := cfg.SearchAlpha
	limit := cfg.SearchTopK
	var documentID string

	if opts != nil {
		if opts.Alpha != nil {
			alpha = *opts.Alpha
		}
		if opts.Limit != nil {
			limit = *opts.Limit
		}
		documentID = opts.DocumentID
	}

	// 1. Embed Query
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	// 2. Hybrid Search (BM25 + Vector)
	docs, err := s.store.Search(ctx, query, vec, alpha, limit, documentID)
	if err != nil {
		return nil, err
	}

	// 3. Rerank (if configured)
	if s.reranker != nil && len(docs) > 0 {
		contents := make([]string, len(docs))
		for i, d := range docs {
			contents[i] = d.Content
		}

		indices, err := s.reranker.Rerank(ctx, query, contents)
		if err != nil {
			return nil, err
		}

		reranked := make([]SearchResult, 0, len(indices))
		for _, idx := range indices {
			if idx < len(docs) {
				reranked = append(reranked, docs[idx])
			}
		}
		finalDocs = reranked
		return reranked, nil
	}

	finalDocs = docs
	return docs, nil
}

func (s *Service) GetChunksByDocument(ctx context.Context, documentID string) ([]SearchResult, error) {
	return s.store.GetChunksByDocument(ctx, documentID)
}
