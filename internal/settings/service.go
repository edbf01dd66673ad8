package settings

import (
	"context"
	"fmt"
)

// Settings is the single tenant-wide runtime configuration row. Chunk
// geometry and QA fan-out are tunable here so reprocessing does not require
// a redeploy.
type Settings struct {
	ID              int     `json:"-"`
	RerankProvider  string  `json:"rerank_provider"`
	RerankAPIKey    string  `json:"rerank_api_key"`
	GeminiAPIKey    string  `json:"gemini_api_key"`
	SearchAlpha     float32 `json:"search_alpha"`
	SearchTopK      int     `json:"search_top_k"`
	ChunkWindowSize int     `json:"chunk_window_size"`
	ChunkOverlap    int     `json:"chunk_overlap"`
	QAPairsPerChunk int     `json:"qa_pairs_per_chunk"`
}

// Validate bounds-checks the tunable fields. Zero values are accepted so a
// partial payload falls back to column defaults.
func (s *Settings) Validate() error {
	if s.SearchAlpha < 0 || s.SearchAlpha > 1 {
		return fmt.Errorf("search_alpha must be between 0 and 1, got %v", s.SearchAlpha)
	}
	if s.SearchTopK < 0 || s.SearchTopK > 100 {
		return fmt.Errorf("search_top_k must be between 0 and 100, got %d", s.SearchTopK)
	}
	if s.ChunkWindowSize < 0 {
		return fmt.Errorf("chunk_window_size must not be negative, got %d", s.ChunkWindowSize)
	}
	if s.ChunkOverlap < 0 {
		return fmt.Errorf("chunk_overlap must not be negative, got %d", s.ChunkOverlap)
	}
	if s.ChunkWindowSize > 0 && s.ChunkOverlap >= s.ChunkWindowSize {
		return fmt.Errorf("chunk_overlap %d must be smaller than chunk_window_size %d", s.ChunkOverlap, s.ChunkWindowSize)
	}
	if s.QAPairsPerChunk < 0 || s.QAPairsPerChunk > 20 {
		return fmt.Errorf("qa_pairs_per_chunk must be between 0 and 20, got %d", s.QAPairsPerChunk)
	}
	return nil
}

type Repository interface {
	Get(ctx context.Context) (*Settings, error)
	Update(ctx context.Context, s *Settings) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context) (*Settings, error) {
	return s.repo.Get(ctx)
}

func (s *Service) Update(ctx context.Context, set *Settings) error {
	return s.repo.Update(ctx, set)
}
