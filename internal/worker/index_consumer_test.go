package worker_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/nsqio/go-nsq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"corpora/apps/backend/internal/worker"
)

func TestIndexConsumer_HandleMessage(t *testing.T) {
	e := new(MockEmbedder)
	s := new(MockVectorStore)
	consumer := worker.NewIndexConsumer(e, s)

	payload := worker.ChunkIndexPayload{
		DocumentID: "blob-1",
		ChunkID:    "blob-1:000002",
		ChunkIndex: 2,
		Title:      "Report",
		Content:    "Report\nIntroduction\nchunk body",
		Page:       3,
		Language:   "en",
	}
	body, _ := json.Marshal(payload)
	msg := &nsq.Message{Body: body}

	e.On("Embed", mock.Anything, "Report\nIntroduction\nchunk body").Return([]float32{0.1, 0.2}, nil)
	s.On("StoreChunk", mock.Anything, mock.MatchedBy(func(chunk worker.Chunk) bool {
		return chunk.DocumentID == "blob-1" &&
			chunk.ChunkID == "blob-1:000002" &&
			chunk.ChunkIndex == 2 &&
			chunk.Page == 3 &&
			len(chunk.Vector) == 2
	})).Return(nil)

	err := consumer.HandleMessage(msg)
	assert.NoError(t, err)
	e.AssertExpectations(t)
	s.AssertExpectations(t)
}

func TestIndexConsumer_PoisonPill(t *testing.T) {
	e := new(MockEmbedder)
	s := new(MockVectorStore)
	consumer := worker.NewIndexConsumer(e, s)

	// Invalid JSON must be dropped, not retried.
	err := consumer.HandleMessage(&nsq.Message{Body: []byte("{not json")})
	assert.NoError(t, err)
	e.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
}

func TestIndexConsumer_MissingFieldsDropped(t *testing.T) {
	e := new(MockEmbedder)
	s := new(MockVectorStore)
	consumer := worker.NewIndexConsumer(e, s)

	body, _ := json.Marshal(worker.ChunkIndexPayload{Content: "orphan"})
	err := consumer.HandleMessage(&nsq.Message{Body: body})
	assert.NoError(t, err)
	e.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
}

func TestIndexConsumer_EmbedFailureRequeues(t *testing.T) {
	e := new(MockEmbedder)
	s := new(MockVectorStore)
	consumer := worker.NewIndexConsumer(e, s)

	body, _ := json.Marshal(worker.ChunkIndexPayload{
		DocumentID: "blob-1",
		ChunkID:    "blob-1:000000",
		Content:    "text",
	})

	e.On("Embed", mock.Anything, "text").Return(nil, errors.New("quota exceeded"))

	err := consumer.HandleMessage(&nsq.Message{Body: body})
	assert.Error(t, err)
	s.AssertNotCalled(t, "StoreChunk", mock.Anything, mock.Anything)
}

func TestIndexConsumer_StoreFailureRequeues(t *testing.T) {
	e := new(MockEmbedder)
	s := new(MockVectorStore)
	consumer := worker.NewIndexConsumer(e, s)

	body, _ := json.Marshal(worker.ChunkIndexPayload{
		DocumentID: "blob-1",
		ChunkID:    "blob-1:000000",
		Content:    "text",
	})

	e.On("Embed", mock.Anything, "text").Return([]float32{0.5}, nil)
	s.On("StoreChunk", mock.Anything, mock.Anything).Return(errors.New("weaviate unreachable"))

	err := consumer.HandleMessage(&nsq.Message{Body: body})
	assert.Error(t, err)
}

func TestIndexConsumer_EmptyBody(t *testing.T) {
	consumer := worker.NewIndexConsumer(new(MockEmbedder), new(MockVectorStore))
	assert.NoError(t, consumer.HandleMessage(&nsq.Message{Body: nil}))
}
