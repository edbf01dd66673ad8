package search

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"corpora/apps/backend/internal/middleware"
	"corpora/apps/backend/internal/retrieval"
)

type Searcher interface {
	Search(ctx context.Context, query string, opts *retrieval.SearchOptions) ([]retrieval.SearchResult, error)
}

type Handler struct {
	searcher Searcher
}

func NewHandler(searcher Searcher) *Handler {
	return &Handler{searcher: searcher}
}

// Search runs hybrid search over the chunk index. q is required; alpha,
// limit, and document_id tune the query.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "q is required", http.StatusBadRequest)
		return
	}

	opts := &retrieval.SearchOptions{
		DocumentID: r.URL.Query().Get("document_id"),
	}

	if raw := r.URL.Query().Get("alpha"); raw != "" {
		alpha, err := strconv.ParseFloat(raw, 32)
		if err != nil || alpha < 0 || alpha > 1 {
			h.writeError(r.Context(), w, "VALIDATION_ERROR", "alpha must be a number between 0 and 1", http.StatusBadRequest)
			return
		}
		a := float32(alpha)
		opts.Alpha = &a
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 100 {
			h.writeError(r.Context(), w, "VALIDATION_ERROR", "limit must be between 1 and 100", http.StatusBadRequest)
			return
		}
		opts.Limit = &limit
	}

	results, err := h.searcher.Search(r.Context(), q, opts)
	if err != nil {
		slog.Error("search failed", "error", err, "query", q)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []retrieval.SearchResult{}
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": results,
		"meta": map[string]int{"count": len(results)},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
