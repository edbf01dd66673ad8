package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corpora/apps/backend/internal/chunks"
	"corpora/apps/backend/internal/prompts"
)

type fakeGenerator struct {
	lastReq GenerateRequest
	result  *GenerateResult
	err     error
}

func (f *fakeGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	f.lastReq = req
	return f.result, f.err
}

type fakePromptRepo struct {
	cfg *prompts.Config
	err error
}

func (f *fakePromptRepo) GetActive(ctx context.Context, function string) (*prompts.Config, error) {
	return f.cfg, f.err
}

func (f *fakePromptRepo) List(ctx context.Context) ([]prompts.Config, error) { return nil, nil }

func (f *fakePromptRepo) Update(ctx context.Context, c *prompts.Config) error { return nil }

func extractionPrompt() *prompts.Config {
	return &prompts.Config{
		Function:        prompts.FunctionExtraction,
		Model:           "gemini-2.0-flash",
		Temperature:     0.1,
		MaxOutputTokens: 8192,
		SystemPrompt:    "Extract structured content.",
		UserTemplate:    "Extract {{file_name}}",
	}
}

func TestExtractor_StructuredPages(t *testing.T) {
	gen := &fakeGenerator{result: &GenerateResult{Text: `{
		"title": "Annual Report",
		"language": "en",
		"pages": [
			{"page_number": 1, "text": "Page one body.", "headings": ["Intro"]},
			{"page_number": 2, "text": "Page two body.", "headings": []}
		]
	}`}}
	ex := NewExtractor(gen, &fakePromptRepo{cfg: extractionPrompt()})

	content, err := ex.Extract(context.Background(), []byte("%PDF"), "report.pdf", "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, chunks.KindPages, content.Kind())
	assert.Equal(t, "Annual Report", content.Title)
	assert.Equal(t, "en", content.Language)
	require.Len(t, content.Pages(), 2)
	assert.Equal(t, 1, content.Pages()[0].PageNumber)
	assert.Equal(t, []string{"Intro"}, content.Pages()[0].Headings)

	// prompt template rendered and attachment forwarded
	assert.Equal(t, "Extract report.pdf", gen.lastReq.Prompt)
	assert.Equal(t, "application/pdf", gen.lastReq.AttachmentMIME)
	assert.True(t, gen.lastReq.ForceJSON)
}

func TestExtractor_FlatFullText(t *testing.T) {
	gen := &fakeGenerator{result: &GenerateResult{
		Text:         `{"title": "Memo", "language": "en", "full_text": "Body text."}`,
		InputTokens:  120,
		OutputTokens: 45,
	}}
	ex := NewExtractor(gen, &fakePromptRepo{cfg: extractionPrompt()})

	content, err := ex.Extract(context.Background(), []byte("data"), "memo.txt", "text/plain")
	require.NoError(t, err)

	assert.Equal(t, chunks.KindFullText, content.Kind())
	assert.Equal(t, "Memo", content.Title)
	assert.Equal(t, "Body text.", content.FullText())
	assert.Equal(t, "gemini-2.0-flash", content.Usage.Model)
	assert.Equal(t, 120, content.Usage.InputTokens)
	assert.Equal(t, 45, content.Usage.OutputTokens)
}

func TestExtractor_UnstructuredFallback(t *testing.T) {
	gen := &fakeGenerator{result: &GenerateResult{Text: "Just a prose answer with no JSON at all."}}
	ex := NewExtractor(gen, &fakePromptRepo{cfg: extractionPrompt()})

	content, err := ex.Extract(context.Background(), []byte("data"), "memo.txt", "text/plain")
	require.NoError(t, err)

	assert.Equal(t, chunks.KindFullText, content.Kind())
	assert.Equal(t, "memo.txt", content.Title)
	assert.Equal(t, "Just a prose answer with no JSON at all.", content.FullText())
	assert.Contains(t, content.Warnings, "model returned unstructured output")
}

func TestExtractor_ModelError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	ex := NewExtractor(gen, &fakePromptRepo{cfg: extractionPrompt()})

	_, err := ex.Extract(context.Background(), []byte("data"), "a.pdf", "application/pdf")
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestExtractor_PromptMissing(t *testing.T) {
	gen := &fakeGenerator{}
	ex := NewExtractor(gen, &fakePromptRepo{err: errors.New("no active prompt")})

	_, err := ex.Extract(context.Background(), []byte("data"), "a.pdf", "application/pdf")
	assert.Error(t, err)
}
