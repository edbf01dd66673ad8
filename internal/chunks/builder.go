package chunks

import (
	"fmt"
	"strings"
	"time"

	"corpora/apps/backend/internal/text"
)

// SourceMeta is the document-level metadata carried onto every record.
type SourceMeta struct {
	DocumentID  string
	URI         string
	FileName    string
	MimeType    string
	ByteSize    int64
	ContentHash string
}

// BuildOptions control the chunk window geometry.
type BuildOptions struct {
	WindowSize int
	Overlap    int
}

func (o BuildOptions) withDefaults() BuildOptions {
	if o.WindowSize == 0 {
		o.WindowSize = text.DefaultWindowSize
	}
	if o.Overlap == 0 && o.WindowSize > text.DefaultOverlap {
		o.Overlap = text.DefaultOverlap
	}
	return o
}

// Build turns extracted content into an ordered list of chunk records.
//
// Paged content is chunked page by page with a single index accumulator
// threaded across pages, so chunk ids stay dense over the whole document.
// Flat content is chunked once with nil page bounds. Chunk ids are
// "<documentId>:<6-digit index>" and encode position; output order is page
// order then intra-page window order.
func Build(extracted *ExtractedContent, meta SourceMeta, extractionVersion string, opts BuildOptions, now time.Time) ([]Record, error) {
	opts = opts.withDefaults()

	title := extracted.Title
	if title == "" {
		title = meta.FileName
	}

	var records []Record
	next := 0

	switch extracted.Kind() {
	case KindPages:
		for _, page := range extracted.Pages() {
			windows, err := text.SplitWindows(page.Text, opts.WindowSize, opts.Overlap)
			if err != nil {
				return nil, fmt.Errorf("chunk page %d: %w", page.PageNumber, err)
			}
			pageNo := page.PageNumber
			for _, w := range windows {
				records = append(records, newRecord(meta, extracted, extractionVersion, title, next, recordPosition{
					pageStart:   &pageNo,
					pageEnd:     &pageNo,
					sectionPath: page.Headings,
					window:      w,
				}, now))
				next++
			}
		}
	case KindFullText:
		windows, err := text.SplitWindows(extracted.FullText(), opts.WindowSize, opts.Overlap)
		if err != nil {
			return nil, fmt.Errorf("chunk full text: %w", err)
		}
		for _, w := range windows {
			records = append(records, newRecord(meta, extracted, extractionVersion, title, next, recordPosition{window: w}, now))
			next++
		}
	default:
		return nil, fmt.Errorf("unknown extracted content kind %q", extracted.Kind())
	}

	return records, nil
}

type recordPosition struct {
	pageStart   *int
	pageEnd     *int
	sectionPath []string
	window      text.Window
}

func newRecord(meta SourceMeta, extracted *ExtractedContent, extractionVersion, title string, index int, pos recordPosition, now time.Time) Record {
	sectionPath := pos.sectionPath
	if sectionPath == nil {
		sectionPath = []string{}
	}

	searchParts := make([]string, 0, len(sectionPath)+2)
	searchParts = append(searchParts, title)
	searchParts = append(searchParts, sectionPath...)
	searchParts = append(searchParts, pos.window.Text)

	warnings := extracted.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	return Record{
		SchemaVersion:     SchemaVersion,
		ExtractionVersion: extractionVersion,
		DocumentID:        meta.DocumentID,
		ChunkID:           fmt.Sprintf("%s:%06d", meta.DocumentID, index),
		Source: SourceDescriptor{
			URI:         meta.URI,
			FileName:    meta.FileName,
			MimeType:    meta.MimeType,
			ByteSize:    meta.ByteSize,
			ContentHash: meta.ContentHash,
		},
		Provenance: Provenance{
			PageStart:   pos.pageStart,
			PageEnd:     pos.pageEnd,
			SectionPath: sectionPath,
			CharStart:   pos.window.Start,
			CharEnd:     pos.window.End,
		},
		Content: Content{
			Title:      title,
			ChunkText:  pos.window.Text,
			SearchText: strings.Join(searchParts, "\n"),
			Language:   extracted.Language,
		},
		Quality: Quality{
			Confidence: defaultConfidence,
			Warnings:   warnings,
		},
		ExtractedAt: now.UTC(),
	}
}
