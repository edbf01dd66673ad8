package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nsqio/go-nsq"

	"corpora/apps/backend/features/extraction"
	"corpora/apps/backend/internal/middleware"
)

type ExtractionRunner interface {
	RunOne(ctx context.Context, jobID string) (*extraction.Job, error)
}

// ExtractConsumer reacts to extract.request events by running the named
// job. The claim inside the runner is atomic, so a message for a job that
// another worker already took is a clean no-op.
type ExtractConsumer struct {
	runner ExtractionRunner
}

func NewExtractConsumer(r ExtractionRunner) *ExtractConsumer {
	return &ExtractConsumer{runner: r}
}

func (h *ExtractConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload ExtractRequestPayload
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		// Poison pill: invalid JSON, don't retry
		slog.Error("poison pill: invalid json", "error", err)
		return nil
	}

	ctx := context.Background()
	if payload.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, payload.CorrelationID)
	}

	job, err := h.runner.RunOne(ctx, payload.JobID)
	if err != nil {
		slog.ErrorContext(ctx, "extraction run failed", "error", err, "job_id", payload.JobID)
		return err // Retry
	}
	if job == nil {
		slog.InfoContext(ctx, "job not claimable, skipping", "job_id", payload.JobID)
		return nil
	}

	slog.InfoContext(ctx, "extraction run finished", "job_id", job.ID, "status", job.Status)
	return nil
}
