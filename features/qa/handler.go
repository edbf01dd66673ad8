package qa

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"corpora/apps/backend/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Generate runs QA generation synchronously and returns the finished job
// with its counters. "file_id" is accepted as an alias for blob_id.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())

	var req struct {
		BlobID            string `json:"blob_id"`
		FileID            string `json:"file_id"`
		QuestionsPerChunk int    `json:"questions_per_chunk"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	blobID := req.BlobID
	if blobID == "" {
		blobID = req.FileID
	}
	if blobID == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "blob_id is required", http.StatusBadRequest)
		return
	}
	if req.QuestionsPerChunk < 0 || req.QuestionsPerChunk > 10 {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "questions_per_chunk must be between 1 and 10", http.StatusBadRequest)
		return
	}

	job, err := h.service.Generate(r.Context(), identity, blobID, req.QuestionsPerChunk)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.writeError(r.Context(), w, "NOT_FOUND", "Blob not found", http.StatusNotFound)
		case errors.Is(err, ErrForbidden):
			h.writeError(r.Context(), w, "FORBIDDEN", "Access denied", http.StatusForbidden)
		case errors.Is(err, ErrNotExtracted):
			h.writeError(r.Context(), w, "CONFLICT", "Blob has not been extracted yet", http.StatusConflict)
		default:
			slog.Error("qa generation failed", "error", err, "blob_id", blobID)
			h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": job}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// GetOverview serves the review screen: latest job, pairs (optionally
// filtered by status), and counts by status.
func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())

	blobID := r.URL.Query().Get("blob_id")
	if blobID == "" {
		blobID = r.URL.Query().Get("file_id")
	}
	if blobID == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "blob_id is required", http.StatusBadRequest)
		return
	}

	status := r.URL.Query().Get("status")
	switch status {
	case "", PairStatusPending, PairStatusApproved, PairStatusRejected:
	default:
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "invalid status filter", http.StatusBadRequest)
		return
	}

	ov, err := h.service.GetOverview(r.Context(), identity, blobID, status)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.writeError(r.Context(), w, "NOT_FOUND", "Blob not found", http.StatusNotFound)
		case errors.Is(err, ErrForbidden):
			h.writeError(r.Context(), w, "FORBIDDEN", "Access denied", http.StatusForbidden)
		default:
			h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": ov,
		"meta": map[string]int{"count": len(ov.Pairs)},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Review applies an approve/reject decision to one pair. Reviewing a pair
// that already left pending reports updated=false instead of failing.
func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	id := r.PathValue("id")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Status != PairStatusApproved && req.Status != PairStatusRejected {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "status must be approved or rejected", http.StatusBadRequest)
		return
	}

	updated, err := h.service.Review(r.Context(), identity, id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.writeError(r.Context(), w, "NOT_FOUND", "QA pair not found", http.StatusNotFound)
		case errors.Is(err, ErrForbidden):
			h.writeError(r.Context(), w, "FORBIDDEN", "Access denied", http.StatusForbidden)
		default:
			h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": map[string]interface{}{
			"qa_id":   id,
			"status":  req.Status,
			"updated": updated,
		},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Approve handles bulk approval: either an explicit id list or approve-all
// pending for a blob.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())

	var req struct {
		QAIDs      []string `json:"qa_ids"`
		ApproveAll bool     `json:"approve_all"`
		BlobID     string   `json:"blob_id"`
		FileID     string   `json:"file_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}

	var approved int
	var err error
	switch {
	case req.ApproveAll:
		blobID := req.BlobID
		if blobID == "" {
			blobID = req.FileID
		}
		if blobID == "" {
			h.writeError(r.Context(), w, "VALIDATION_ERROR", "blob_id is required with approve_all", http.StatusBadRequest)
			return
		}
		approved, err = h.service.ApproveAll(r.Context(), identity, blobID)
	case len(req.QAIDs) > 0:
		approved, err = h.service.ApproveByIDs(r.Context(), identity, req.QAIDs)
	default:
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "qa_ids or approve_all is required", http.StatusBadRequest)
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.writeError(r.Context(), w, "NOT_FOUND", "Blob not found", http.StatusNotFound)
		case errors.Is(err, ErrForbidden):
			h.writeError(r.Context(), w, "FORBIDDEN", "Access denied", http.StatusForbidden)
		default:
			h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": map[string]int{"approved_count": approved},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFrom(r.Context())
	id := r.PathValue("id")

	if err := h.service.Delete(r.Context(), identity, id); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.writeError(r.Context(), w, "NOT_FOUND", "QA pair not found", http.StatusNotFound)
		case errors.Is(err, ErrForbidden):
			h.writeError(r.Context(), w, "FORBIDDEN", "Access denied", http.StatusForbidden)
		default:
			h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": map[string]interface{}{"deleted": true, "qa_id": id},
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
