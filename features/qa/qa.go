package qa

import (
	"time"
)

// Generation job statuses
const (
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
)

// Pair statuses. A pair only ever moves away from pending; review decisions
// are not reversible through the API.
const (
	PairStatusPending  = "pending"
	PairStatusApproved = "approved"
	PairStatusRejected = "rejected"
)

// GenerationJob tracks one QA generation run over a blob's chunk artifact.
// Counters are persisted after every chunk so a poll sees live progress.
// Error holds the most recent chunk-level failure and does not make the job
// itself failed.
type GenerationJob struct {
	ID                string     `json:"id"`
	BlobID            string     `json:"blob_id"`
	TenantID          string     `json:"tenant_id"`
	QuestionsPerChunk int        `json:"questions_per_chunk"`
	TotalChunks       int        `json:"total_chunks"`
	ProcessedChunks   int        `json:"processed_chunks"`
	TotalQAGenerated  int        `json:"total_qa_generated"`
	Status            string     `json:"status"`
	Error             string     `json:"error,omitempty"`
	CreatedBy         string     `json:"created_by,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// Pair is one generated question/answer awaiting review. ChunkText is
// denormalized so reviewers see the grounding text without loading the
// artifact.
type Pair struct {
	ID         string     `json:"id"`
	JobID      string     `json:"job_id"`
	BlobID     string     `json:"blob_id"`
	TenantID   string     `json:"tenant_id"`
	ChunkIndex int        `json:"chunk_index"`
	ChunkText  string     `json:"chunk_text"`
	Question   string     `json:"question"`
	Answer     string     `json:"answer"`
	Status     string     `json:"status"`
	Generator  string     `json:"generator"`
	CreatedAt  time.Time  `json:"created_at"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy string     `json:"reviewed_by,omitempty"`
}
