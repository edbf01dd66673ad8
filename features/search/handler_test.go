package search_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"corpora/apps/backend/features/search"
	"corpora/apps/backend/internal/retrieval"
)

type MockSearcher struct{ mock.Mock }

func (m *MockSearcher) Search(ctx context.Context, query string, opts *retrieval.SearchOptions) ([]retrieval.SearchResult, error) {
	args := m.Called(ctx, query, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]retrieval.SearchResult), args.Error(1)
}

func TestHandler_Search(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		searcher := new(MockSearcher)
		handler := search.NewHandler(searcher)

		searcher.On("Search", mock.Anything, "chunk lifecycle", mock.MatchedBy(func(opts *retrieval.SearchOptions) bool {
			return opts.Alpha == nil && opts.Limit == nil && opts.DocumentID == ""
		})).Return([]retrieval.SearchResult{
			{Content: "chunk one", Score: 0.9, DocumentID: "blob-1"},
			{Content: "chunk two", Score: 0.7, DocumentID: "blob-1"},
		}, nil)

		req := httptest.NewRequest("GET", "/search?q=chunk+lifecycle", nil)
		w := httptest.NewRecorder()
		handler.Search(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Len(t, body["data"], 2)
		meta := body["meta"].(map[string]interface{})
		assert.Equal(t, float64(2), meta["count"])
	})

	t.Run("PassesTuningParameters", func(t *testing.T) {
		searcher := new(MockSearcher)
		handler := search.NewHandler(searcher)

		searcher.On("Search", mock.Anything, "query", mock.MatchedBy(func(opts *retrieval.SearchOptions) bool {
			return opts.Alpha != nil && *opts.Alpha == float32(0.8) &&
				opts.Limit != nil && *opts.Limit == 5 &&
				opts.DocumentID == "blob-1"
		})).Return([]retrieval.SearchResult{}, nil)

		req := httptest.NewRequest("GET", "/search?q=query&alpha=0.8&limit=5&document_id=blob-1", nil)
		w := httptest.NewRecorder()
		handler.Search(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		searcher.AssertExpectations(t)
	})

	t.Run("MissingQuery", func(t *testing.T) {
		handler := search.NewHandler(new(MockSearcher))

		req := httptest.NewRequest("GET", "/search", nil)
		w := httptest.NewRecorder()
		handler.Search(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "q is required")
	})

	t.Run("InvalidAlpha", func(t *testing.T) {
		handler := search.NewHandler(new(MockSearcher))

		req := httptest.NewRequest("GET", "/search?q=x&alpha=1.5", nil)
		w := httptest.NewRecorder()
		handler.Search(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("InvalidLimit", func(t *testing.T) {
		handler := search.NewHandler(new(MockSearcher))

		req := httptest.NewRequest("GET", "/search?q=x&limit=0", nil)
		w := httptest.NewRecorder()
		handler.Search(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("EmptyResultIsNotNull", func(t *testing.T) {
		searcher := new(MockSearcher)
		handler := search.NewHandler(searcher)

		searcher.On("Search", mock.Anything, "nothing", mock.Anything).Return(nil, nil)

		req := httptest.NewRequest("GET", "/search?q=nothing", nil)
		w := httptest.NewRecorder()
		handler.Search(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"data":[]`)
	})

	t.Run("SearchError", func(t *testing.T) {
		searcher := new(MockSearcher)
		handler := search.NewHandler(searcher)

		searcher.On("Search", mock.Anything, "boom", mock.Anything).Return(nil, errors.New("weaviate unreachable"))

		req := httptest.NewRequest("GET", "/search?q=boom", nil)
		w := httptest.NewRecorder()
		handler.Search(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	})
}
