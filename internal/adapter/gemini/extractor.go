package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"corpora/apps/backend/internal/chunks"
	"corpora/apps/backend/internal/docconv"
	"corpora/apps/backend/internal/modeljson"
	"corpora/apps/backend/internal/prompts"
)

// Generator is the model call surface the extractor depends on; satisfied by
// *DynamicClient and by fakes in tests.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}

// Extractor turns raw document bytes into structured content by prompting
// the model with the active extraction prompt.
type Extractor struct {
	gen        Generator
	promptRepo prompts.Repository
}

func NewExtractor(gen Generator, promptRepo prompts.Repository) *Extractor {
	return &Extractor{gen: gen, promptRepo: promptRepo}
}

// extractionPayload is the JSON shape the extraction prompt instructs the
// model to produce.
type extractionPayload struct {
	Title    string `json:"title"`
	Language string `json:"language"`
	FullText string `json:"full_text"`
	Pages    []struct {
		PageNumber int      `json:"page_number"`
		Text       string   `json:"text"`
		Headings   []string `json:"headings"`
	} `json:"pages"`
}

func (e *Extractor) Extract(ctx context.Context, data []byte, fileName, mimeType string) (*chunks.ExtractedContent, error) {
	normalized, normMIME, converted, err := docconv.Normalize(data, fileName, mimeType)
	if err != nil {
		return nil, err
	}
	if converted {
		slog.InfoContext(ctx, "document normalized for extraction", "file", fileName, "mime", normMIME)
	}

	cfg, err := e.promptRepo.GetActive(ctx, prompts.FunctionExtraction)
	if err != nil {
		return nil, err
	}

	res, err := e.gen.Generate(ctx, GenerateRequest{
		Model:           cfg.Model,
		SystemPrompt:    cfg.SystemPrompt,
		Prompt:          prompts.Render(cfg.UserTemplate, map[string]string{"file_name": fileName}),
		Temperature:     cfg.Temperature,
		MaxOutputTokens: cfg.MaxOutputTokens,
		Attachment:      normalized,
		AttachmentMIME:  normMIME,
		ForceJSON:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("extraction model call: %w", err)
	}

	usage := chunks.ModelUsage{
		Model:        cfg.Model,
		InputTokens:  int(res.InputTokens),
		OutputTokens: int(res.OutputTokens),
	}

	var payload extractionPayload
	if err := modeljson.Decode(res.Text, &payload); err != nil {
		if errors.Is(err, modeljson.ErrNoJSON) {
			// The model answered in prose; keep the text rather than failing
			// the whole document.
			slog.WarnContext(ctx, "model returned unstructured output, keeping as full text", "file", fileName)
			content := chunks.FullTextContent(res.Text, fileName, "")
			content.Warnings = append(content.Warnings, "model returned unstructured output")
			content.Usage = usage
			return content, nil
		}
		return nil, fmt.Errorf("decode extraction output: %w", err)
	}

	// Flat documents come back as a single full_text field instead of pages.
	if len(payload.Pages) == 0 && payload.FullText != "" {
		content := chunks.FullTextContent(payload.FullText, payload.Title, payload.Language)
		content.Usage = usage
		return content, nil
	}

	pages := make([]chunks.Page, 0, len(payload.Pages))
	for _, p := range payload.Pages {
		pages = append(pages, chunks.Page{
			PageNumber: p.PageNumber,
			Text:       p.Text,
			Headings:   p.Headings,
		})
	}

	content := chunks.PagedContent(pages, payload.Title, payload.Language)
	content.Usage = usage
	return content, nil
}
