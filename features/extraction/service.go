package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"corpora/apps/backend/features/inventory"
	"corpora/apps/backend/internal/adapter/blobstore"
	"corpora/apps/backend/internal/chunks"
	"corpora/apps/backend/internal/config"
	"corpora/apps/backend/internal/middleware"
	"corpora/apps/backend/internal/settings"
)

// msgMissingBlobBytes is the one failure that also fails the inventory row:
// the bytes the row points at are gone.
const msgMissingBlobBytes = "File not found in blob store"

type BlobRepository interface {
	Get(ctx context.Context, id string) (*inventory.Blob, error)
	UpdateStatus(ctx context.Context, id, status, errMsg string) error
}

type Extractor interface {
	Extract(ctx context.Context, data []byte, fileName, mimeType string) (*chunks.ExtractedContent, error)
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type SettingsService interface {
	Get(ctx context.Context) (*settings.Settings, error)
}

type Service struct {
	jobs              Repository
	outputs           OutputRepository
	blobs             BlobRepository
	store             blobstore.Store
	extractor         Extractor
	settings          SettingsService
	pub               EventPublisher
	extractionVersion string
	leaseSeconds      int
}

func NewService(
	jobs Repository,
	outputs OutputRepository,
	blobs BlobRepository,
	store blobstore.Store,
	extractor Extractor,
	settingsSvc SettingsService,
	pub EventPublisher,
	extractionVersion string,
	leaseSeconds int,
) *Service {
	if extractionVersion == "" {
		extractionVersion = "gemini-v1"
	}
	if leaseSeconds <= 0 {
		leaseSeconds = 300
	}
	return &Service{
		jobs:              jobs,
		outputs:           outputs,
		blobs:             blobs,
		store:             store,
		extractor:         extractor,
		settings:          settingsSvc,
		pub:               pub,
		extractionVersion: extractionVersion,
		leaseSeconds:      leaseSeconds,
	}
}

// Enqueue records a queued job for the blob and nudges a worker over NSQ.
// The job row is the source of truth; the event is best effort.
func (s *Service) Enqueue(ctx context.Context, blobID string) (*Job, error) {
	blob, err := s.blobs.Get(ctx, blobID)
	if err != nil {
		return nil, err
	}

	job := &Job{
		BlobID:            blob.ID,
		TenantID:          blob.TenantID,
		ExtractionVersion: s.extractionVersion,
	}
	if err := s.jobs.Enqueue(ctx, job); err != nil {
		return nil, err
	}

	if err := s.blobs.UpdateStatus(ctx, blob.ID, inventory.StatusQueued, ""); err != nil {
		slog.WarnContext(ctx, "failed to mark blob queued", "error", err, "blob_id", blob.ID)
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"job_id":         job.ID,
		"correlation_id": middleware.GetCorrelationID(ctx),
	})
	if err := s.pub.Publish(config.TopicExtractRequest, payload); err != nil {
		slog.ErrorContext(ctx, "failed to publish extract.request event", "error", err, "job_id", job.ID)
	} else {
		slog.InfoContext(ctx, "published extract.request event", "job_id", job.ID, "blob_id", blob.ID)
	}

	return job, nil
}

// RunOne claims and runs a single job. With an empty jobID it takes the
// oldest queued job; otherwise it claims that specific job. Returns
// (nil, nil) when there is nothing claimable, which is a no-op, not an
// error.
func (s *Service) RunOne(ctx context.Context, jobID string) (*Job, error) {
	var job *Job
	var err error
	if jobID == "" {
		job, err = s.jobs.ClaimNext(ctx, s.leaseSeconds)
	} else {
		job, err = s.jobs.ClaimByID(ctx, jobID, s.leaseSeconds)
	}
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}

	slog.InfoContext(ctx, "extraction job claimed", "job_id", job.ID, "blob_id", job.BlobID, "retry", job.RetryCount)

	blob, err := s.blobs.Get(ctx, job.BlobID)
	if err != nil {
		return s.fail(ctx, job, fmt.Sprintf("blob lookup failed: %v", err), false)
	}

	if err := s.blobs.UpdateStatus(ctx, blob.ID, inventory.StatusExtracting, ""); err != nil {
		slog.WarnContext(ctx, "failed to mark blob extracting", "error", err, "blob_id", blob.ID)
	}

	data, err := s.store.Get(ctx, blob.StorageKey)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			// The inventory row points at bytes that no longer exist; the
			// blob itself is unusable, not just this job.
			return s.fail(ctx, job, msgMissingBlobBytes, true)
		}
		return s.fail(ctx, job, fmt.Sprintf("read blob bytes: %v", err), false)
	}

	extractStart := time.Now()
	extracted, err := s.extractor.Extract(ctx, data, blob.FileName, blob.MimeType)
	if err != nil {
		return s.fail(ctx, job, fmt.Sprintf("extraction failed: %v", err), false)
	}
	extractDuration := time.Since(extractStart)

	// A 200 from the model with no text in it is still a failed extraction;
	// completing here would record the document as extracted with nothing
	// behind it.
	if extracted.Empty() {
		return s.fail(ctx, job, "no content returned", false)
	}

	opts := chunks.BuildOptions{}
	if set, err := s.settings.Get(ctx); err == nil && set != nil {
		opts.WindowSize = set.ChunkWindowSize
		opts.Overlap = set.ChunkOverlap
	}

	meta := chunks.SourceMeta{
		DocumentID:  blob.ID,
		URI:         blob.StorageKey,
		FileName:    blob.FileName,
		MimeType:    blob.MimeType,
		ByteSize:    blob.ByteSize,
		ContentHash: blob.ContentHash,
	}

	records, err := chunks.Build(extracted, meta, s.extractionVersion, opts, time.Now().UTC())
	if err != nil {
		return s.fail(ctx, job, fmt.Sprintf("chunking failed: %v", err), false)
	}

	artifact, err := chunks.EncodeJSONL(records)
	if err != nil {
		return s.fail(ctx, job, fmt.Sprintf("encode artifact: %v", err), false)
	}

	artifactKey := fmt.Sprintf("artifacts/%s/%s.jsonl", blob.ID, job.ID)
	if err := s.store.Put(ctx, artifactKey, artifact); err != nil {
		return s.fail(ctx, job, fmt.Sprintf("store artifact: %v", err), false)
	}

	out := &Output{
		JobID:         job.ID,
		BlobID:        blob.ID,
		ArtifactType:  chunks.ArtifactType,
		ArtifactKey:   artifactKey,
		ArtifactHash:  chunks.Hash(artifact),
		SchemaVersion: chunks.SchemaVersion,
		ChunkCount:    len(records),
	}
	if err := s.outputs.Save(ctx, out); err != nil {
		return s.fail(ctx, job, fmt.Sprintf("save output: %v", err), false)
	}

	stats := RunStats{
		ModelVersion: extracted.Usage.Model,
		DurationMS:   extractDuration.Milliseconds(),
		InputTokens:  extracted.Usage.InputTokens,
		OutputTokens: extracted.Usage.OutputTokens,
	}
	if err := s.jobs.MarkCompleted(ctx, job.ID, len(records), stats); err != nil {
		return nil, fmt.Errorf("mark job completed: %w", err)
	}
	if err := s.blobs.UpdateStatus(ctx, blob.ID, inventory.StatusExtracted, ""); err != nil {
		slog.WarnContext(ctx, "failed to mark blob extracted", "error", err, "blob_id", blob.ID)
	}

	job.Status = StatusCompleted
	job.ChunkCount = len(records)
	job.ModelVersion = stats.ModelVersion
	job.DurationMS = stats.DurationMS
	job.InputTokens = stats.InputTokens
	job.OutputTokens = stats.OutputTokens

	s.publishCompleted(ctx, job, len(records))
	s.publishIndexEvents(ctx, records, extracted.Language)

	slog.InfoContext(ctx, "extraction job completed", "job_id", job.ID, "blob_id", blob.ID, "chunks", len(records))
	return job, nil
}

// fail records the job failure; when blobToo is set the inventory row is
// failed with the same message.
func (s *Service) fail(ctx context.Context, job *Job, msg string, blobToo bool) (*Job, error) {
	slog.ErrorContext(ctx, "extraction job failed", "job_id", job.ID, "blob_id", job.BlobID, "error", msg)

	if err := s.jobs.MarkFailed(ctx, job.ID, msg); err != nil {
		return nil, fmt.Errorf("mark job failed: %w", err)
	}
	if blobToo {
		if err := s.blobs.UpdateStatus(ctx, job.BlobID, inventory.StatusFailed, msg); err != nil {
			slog.ErrorContext(ctx, "failed to mark blob failed", "error", err, "blob_id", job.BlobID)
		}
	} else {
		// Job-level failure: the blob goes back to uploaded so it can be
		// retried.
		if err := s.blobs.UpdateStatus(ctx, job.BlobID, inventory.StatusUploaded, ""); err != nil {
			slog.WarnContext(ctx, "failed to reset blob status", "error", err, "blob_id", job.BlobID)
		}
	}

	job.Status = StatusFailed
	job.Error = msg
	s.publishCompleted(ctx, job, 0)
	return job, nil
}

func (s *Service) publishCompleted(ctx context.Context, job *Job, chunkCount int) {
	payload, _ := json.Marshal(map[string]interface{}{
		"job_id":         job.ID,
		"blob_id":        job.BlobID,
		"status":         job.Status,
		"chunk_count":    chunkCount,
		"correlation_id": middleware.GetCorrelationID(ctx),
	})
	if err := s.pub.Publish(config.TopicExtractCompleted, payload); err != nil {
		slog.ErrorContext(ctx, "failed to publish extract.completed event", "error", err, "job_id", job.ID)
	}
}

func (s *Service) publishIndexEvents(ctx context.Context, records []chunks.Record, language string) {
	correlationID := middleware.GetCorrelationID(ctx)
	for i, rec := range records {
		page := 0
		if rec.Provenance.PageStart != nil {
			page = *rec.Provenance.PageStart
		}
		payload, _ := json.Marshal(map[string]interface{}{
			"document_id":    rec.DocumentID,
			"chunk_id":       rec.ChunkID,
			"chunk_index":    i,
			"title":          rec.Content.Title,
			"content":        rec.Content.SearchText,
			"page":           page,
			"language":       language,
			"correlation_id": correlationID,
		})
		if err := s.pub.Publish(config.TopicChunkIndex, payload); err != nil {
			slog.ErrorContext(ctx, "failed to publish chunk.index event", "error", err, "chunk_id", rec.ChunkID)
			return
		}
	}
}

// Reap requeues running jobs whose lease expired.
func (s *Service) Reap(ctx context.Context) (int, error) {
	n, err := s.jobs.RequeueStale(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.InfoContext(ctx, "requeued stale extraction jobs", "count", n)
	}
	return n, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Job, error) {
	return s.jobs.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, tenantID string) ([]Job, error) {
	return s.jobs.List(ctx, tenantID)
}

func (s *Service) Output(ctx context.Context, jobID string) (*Output, error) {
	return s.outputs.GetByJob(ctx, jobID)
}
