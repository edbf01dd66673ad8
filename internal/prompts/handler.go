package prompts

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"corpora/apps/backend/internal/middleware"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) ListPrompts(w http.ResponseWriter, r *http.Request) {
	configs, err := h.repo.List(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}
	if configs == nil {
		configs = []Config{}
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"data": configs})
}

// GetPrompt returns the active config for one function.
func (h *Handler) GetPrompt(w http.ResponseWriter, r *http.Request) {
	function := r.PathValue("function")
	if function != FunctionExtraction && function != FunctionChunkQA {
		h.writeError(r.Context(), w, "NOT_FOUND", "Unknown prompt function", http.StatusNotFound)
		return
	}

	cfg, err := h.repo.GetActive(r.Context(), function)
	if err != nil {
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"data": cfg})
}

func (h *Handler) UpdatePrompt(w http.ResponseWriter, r *http.Request) {
	function := r.PathValue("function")
	if function != FunctionExtraction && function != FunctionChunkQA {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "unknown prompt function", http.StatusBadRequest)
		return
	}

	var c Config
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if c.Model == "" || c.UserTemplate == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "model and user_template are required", http.StatusBadRequest)
		return
	}

	c.ID = uuid.New().String()
	c.Function = function

	if err := h.repo.Update(r.Context(), &c); err != nil {
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
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

	json.NewEncoder(w).Encode(resp)
}
