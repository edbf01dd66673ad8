package prompts

import (
	"context"
	"strings"
	"time"
)

const (
	// FunctionExtraction drives document-to-structured-content extraction.
	FunctionExtraction = "extraction"

	// FunctionChunkQA drives question/answer pair generation per chunk.
	FunctionChunkQA = "generate_chunk_qa"
)

// Config is a versioned prompt for one model function. Exactly one config
// per function is active at a time.
type Config struct {
	ID              string    `json:"id"`
	Function        string    `json:"function"`
	Model           string    `json:"model"`
	Temperature     float32   `json:"temperature"`
	MaxOutputTokens int       `json:"max_output_tokens"`
	SystemPrompt    string    `json:"system_prompt"`
	UserTemplate    string    `json:"user_template"`
	Version         int       `json:"version"`
	Active          bool      `json:"active"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Repository interface {
	GetActive(ctx context.Context, function string) (*Config, error)
	List(ctx context.Context) ([]Config, error)
	Update(ctx context.Context, c *Config) error
}

// Render substitutes {{name}} placeholders in a template. Unknown
// placeholders are left in place so a bad template is visible in the output
// rather than silently blanked.
func Render(template string, vars map[string]string) string {
	out := template
	for name, value := range vars {
		out = strings.ReplaceAll(out, "{{"+name+"}}", value)
	}
	return out
}
