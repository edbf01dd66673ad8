package worker_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"corpora/apps/backend/features/extraction"
	"corpora/apps/backend/internal/worker"
)

type MockEmbedder struct{ mock.Mock }

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockVectorStore struct{ mock.Mock }

func (m *MockVectorStore) StoreChunk(ctx context.Context, chunk worker.Chunk) error {
	return m.Called(ctx, chunk).Error(0)
}

func (m *MockVectorStore) DeleteChunksByDocument(ctx context.Context, documentID string) error {
	return m.Called(ctx, documentID).Error(0)
}

type MockRunner struct{ mock.Mock }

func (m *MockRunner) RunOne(ctx context.Context, jobID string) (*extraction.Job, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*extraction.Job), args.Error(1)
}
