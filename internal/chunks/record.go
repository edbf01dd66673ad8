// Package chunks defines the chunk record schema written into extraction
// artifacts and the builder that produces records from extracted content.
package chunks

import "time"

const (
	// SchemaVersion is the chunk record schema version stamped on every
	// record and artifact. Bump when the field set changes.
	SchemaVersion = "1.0"

	// ArtifactType is the only artifact encoding currently produced.
	ArtifactType = "chunk_jsonl"

	// defaultConfidence is a fixed placeholder score; there is no real
	// per-chunk quality model yet.
	defaultConfidence = 0.6
)

// SourceDescriptor identifies the document a chunk came from.
type SourceDescriptor struct {
	URI         string `json:"uri"`
	FileName    string `json:"file_name"`
	MimeType    string `json:"mime_type"`
	ByteSize    int64  `json:"byte_size"`
	ContentHash string `json:"content_hash"`
}

// Provenance locates a chunk inside its document. Page bounds are nil for
// documents extracted as flat full text. Character offsets are relative to
// the page text for paged content and to the whole document otherwise.
type Provenance struct {
	PageStart   *int     `json:"page_start"`
	PageEnd     *int     `json:"page_end"`
	SectionPath []string `json:"section_path"`
	CharStart   int      `json:"char_start"`
	CharEnd     int      `json:"char_end"`
}

// Content carries the chunk text plus the denormalized search text used by
// the downstream index so it never has to re-join metadata per query.
type Content struct {
	Title      string `json:"title"`
	ChunkText  string `json:"chunk_text"`
	SearchText string `json:"search_text"`
	Language   string `json:"language"`
}

// Quality holds the confidence score and any extraction warnings.
type Quality struct {
	Confidence float64  `json:"confidence"`
	Warnings   []string `json:"warnings"`
}

// Record is one chunk inside an extraction artifact. Records are not
// database rows; they live only in the serialized artifact.
type Record struct {
	SchemaVersion     string           `json:"schema_version"`
	ExtractionVersion string           `json:"extraction_version"`
	DocumentID        string           `json:"document_id"`
	ChunkID           string           `json:"chunk_id"`
	Source            SourceDescriptor `json:"source"`
	Provenance        Provenance       `json:"provenance"`
	Content           Content          `json:"content"`
	Quality           Quality          `json:"quality"`
	ExtractedAt       time.Time        `json:"extracted_at"`
}
