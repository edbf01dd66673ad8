package chunks

// ContentKind discriminates the two shapes extraction can produce.
type ContentKind string

const (
	KindPages    ContentKind = "pages"
	KindFullText ContentKind = "full_text"
)

// ModelUsage records which model produced the content and what it cost.
type ModelUsage struct {
	Model        string
	InputTokens  int
	OutputTokens int
}

// Page is one page of extracted text with its heading trail.
type Page struct {
	PageNumber int
	Text       string
	Headings   []string
}

// ExtractedContent is a tagged union over page-oriented and flat extraction
// output. Constructors fix the kind so the builder can switch exhaustively
// instead of probing optional fields.
type ExtractedContent struct {
	kind     ContentKind
	pages    []Page
	fullText string

	Title    string
	Language string
	Warnings []string
	Usage    ModelUsage
}

// PagedContent builds page-oriented extracted content.
func PagedContent(pages []Page, title, language string) *ExtractedContent {
	return &ExtractedContent{kind: KindPages, pages: pages, Title: title, Language: language}
}

// FullTextContent builds flat extracted content.
func FullTextContent(text, title, language string) *ExtractedContent {
	return &ExtractedContent{kind: KindFullText, fullText: text, Title: title, Language: language}
}

func (e *ExtractedContent) Kind() ContentKind { return e.kind }
func (e *ExtractedContent) Pages() []Page     { return e.pages }
func (e *ExtractedContent) FullText() string  { return e.fullText }

// Empty reports whether there is no text at all to chunk.
func (e *ExtractedContent) Empty() bool {
	switch e.kind {
	case KindPages:
		for _, p := range e.pages {
			if p.Text != "" {
				return false
			}
		}
		return true
	default:
		return e.fullText == ""
	}
}
