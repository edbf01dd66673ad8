package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"corpora/apps/backend/internal/middleware"
)

type BlobRepo interface {
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status string) (int, error)
}

type JobRepo interface {
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status string) (int, error)
}

type PairRepo interface {
	CountPairsByStatus(ctx context.Context, status string) (int, error)
}

type VectorStore interface {
	CountChunks(ctx context.Context) (int, error)
}

type Handler struct {
	blobRepo    BlobRepo
	jobRepo     JobRepo
	pairRepo    PairRepo
	vectorStore VectorStore
}

func NewHandler(b BlobRepo, j JobRepo, p PairRepo, v VectorStore) *Handler {
	return &Handler{blobRepo: b, jobRepo: j, pairRepo: p, vectorStore: v}
}

type StatsResponse struct {
	Blobs         int            `json:"blobs"`
	BlobsByStatus map[string]int `json:"blobs_by_status"`
	Jobs          int            `json:"jobs"`
	JobsByStatus  map[string]int `json:"jobs_by_status"`
	QAByStatus    map[string]int `json:"qa_by_status"`
	IndexedChunks int            `json:"indexed_chunks"`
}

var (
	blobStatuses = []string{"uploaded", "queued", "extracting", "extracted", "failed"}
	jobStatuses  = []string{"queued", "running", "completed", "failed"}
	pairStatuses = []string{"pending", "approved", "rejected"}
)

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	blobCount, err := h.blobRepo.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count blobs", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count blobs", http.StatusInternalServerError)
		return
	}

	blobsByStatus := make(map[string]int, len(blobStatuses))
	for _, status := range blobStatuses {
		n, err := h.blobRepo.CountByStatus(ctx, status)
		if err != nil {
			slog.ErrorContext(ctx, "failed to count blobs by status", "error", err, "status", status)
			h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count blobs", http.StatusInternalServerError)
			return
		}
		blobsByStatus[status] = n
	}

	jobCount, err := h.jobRepo.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count jobs", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count jobs", http.StatusInternalServerError)
		return
	}

	jobsByStatus := make(map[string]int, len(jobStatuses))
	for _, status := range jobStatuses {
		n, err := h.jobRepo.CountByStatus(ctx, status)
		if err != nil {
			slog.ErrorContext(ctx, "failed to count jobs by status", "error", err, "status", status)
			h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count jobs", http.StatusInternalServerError)
			return
		}
		jobsByStatus[status] = n
	}

	qaByStatus := make(map[string]int, len(pairStatuses))
	for _, status := range pairStatuses {
		n, err := h.pairRepo.CountPairsByStatus(ctx, status)
		if err != nil {
			slog.ErrorContext(ctx, "failed to count qa pairs", "error", err, "status", status)
			h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count qa pairs", http.StatusInternalServerError)
			return
		}
		qaByStatus[status] = n
	}

	indexed, err := h.vectorStore.CountChunks(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count indexed chunks", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count indexed chunks", http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{
		Blobs:         blobCount,
		BlobsByStatus: blobsByStatus,
		Jobs:          jobCount,
		JobsByStatus:  jobsByStatus,
		QAByStatus:    qaByStatus,
		IndexedChunks: indexed,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
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
