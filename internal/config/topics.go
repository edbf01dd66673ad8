package config

const (
	// TopicExtractRequest is the NSQ topic for queued extraction jobs.
	TopicExtractRequest = "extract.request"

	// TopicExtractCompleted is the NSQ topic for finished extraction runs.
	TopicExtractCompleted = "extract.completed"

	// TopicChunkIndex is the NSQ topic for chunk embedding and indexing tasks.
	TopicChunkIndex = "chunk.index"
)
