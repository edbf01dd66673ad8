package extraction

import (
	"time"
)

// Job statuses
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Job is one extraction attempt over a blob. A running job holds a lease;
// when the lease expires without completion the reaper requeues it.
type Job struct {
	ID                string     `json:"id"`
	BlobID            string     `json:"blob_id"`
	TenantID          string     `json:"tenant_id"`
	Status            string     `json:"status"`
	Error             string     `json:"error,omitempty"`
	RetryCount        int        `json:"retry_count"`
	ExtractionVersion string     `json:"extraction_version"`
	ChunkCount        int        `json:"chunk_count"`
	ModelVersion      string     `json:"model_version,omitempty"`
	DurationMS        int64      `json:"duration_ms"`
	InputTokens       int        `json:"input_tokens"`
	OutputTokens      int        `json:"output_tokens"`
	QueuedAt          time.Time  `json:"queued_at"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	LeaseExpiresAt    *time.Time `json:"lease_expires_at,omitempty"`
}

// RunStats carries the per-run accounting written when a job completes.
type RunStats struct {
	ModelVersion string
	DurationMS   int64
	InputTokens  int
	OutputTokens int
}

// Output is the persisted artifact record for one completed job.
type Output struct {
	ID            string    `json:"id"`
	JobID         string    `json:"job_id"`
	BlobID        string    `json:"blob_id"`
	ArtifactType  string    `json:"artifact_type"`
	ArtifactKey   string    `json:"artifact_key"`
	ArtifactHash  string    `json:"artifact_hash"`
	SchemaVersion string    `json:"schema_version"`
	ChunkCount    int       `json:"chunk_count"`
	CreatedAt     time.Time `json:"created_at"`
}
