package worker

// ExtractRequestPayload asks a worker to run one queued extraction job.
type ExtractRequestPayload struct {
	JobID         string `json:"job_id"`
	CorrelationID string `json:"correlation_id"`
}

// ExtractCompletedPayload announces the outcome of an extraction run.
type ExtractCompletedPayload struct {
	JobID         string `json:"job_id"`
	BlobID        string `json:"blob_id"`
	Status        string `json:"status"`
	ChunkCount    int    `json:"chunk_count"`
	CorrelationID string `json:"correlation_id"`
}

// ChunkIndexPayload carries one chunk to the embedding/indexing worker.
type ChunkIndexPayload struct {
	DocumentID string `json:"document_id"`
	ChunkID    string `json:"chunk_id"`
	ChunkIndex int    `json:"chunk_index"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Page       int    `json:"page,omitempty"`
	Language   string `json:"language,omitempty"`

	CorrelationID string `json:"correlation_id"`
}
