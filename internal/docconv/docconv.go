// Package docconv normalizes uploaded documents before model extraction.
// PDFs and plain text pass through untouched; DOCX archives are flattened to
// plain-text pages of fixed geometry so the model sees a paginated document
// body instead of raw zip bytes.
package docconv

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const (
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeText = "text/plain"

	// Page geometry for converted documents, roughly an A4 page of
	// monospaced text. Pages are separated by a form feed.
	pageColumns = 100
	pageLines   = 60
)

// Normalize returns the bytes to hand to the extraction model. converted is
// true when the payload was rewritten (and outMime differs from the input).
// Converted DOCX text is wrapped at pageColumns and split into pageLines-line
// pages joined by "\f" so page numbers stay meaningful downstream.
func Normalize(data []byte, fileName, mimeType string) (out []byte, outMime string, converted bool, err error) {
	if isDOCX(fileName, mimeType) {
		text, err := docxToText(data)
		if err != nil {
			return nil, "", false, fmt.Errorf("convert docx %s: %w", fileName, err)
		}
		return []byte(paginate(text)), mimeText, true, nil
	}
	return data, mimeType, false, nil
}

func isDOCX(fileName, mimeType string) bool {
	if mimeType == mimeDOCX {
		return true
	}
	return strings.HasSuffix(strings.ToLower(fileName), ".docx")
}

func docxToText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("word/document.xml not found")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	return extractRuns(rc)
}

// extractRuns walks the WordprocessingML stream collecting text runs. A
// paragraph end (w:p) emits a newline, a tab run (w:tab) a tab.
func extractRuns(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var b strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				var text string
				if err := dec.DecodeElement(&text, &t); err != nil {
					return "", err
				}
				b.WriteString(text)
			case "tab":
				b.WriteByte('\t')
			case "br":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			if t.Name.Local == "p" {
				b.WriteByte('\n')
			}
		}
	}
	return b.String(), nil
}

// paginate wraps the flattened text at pageColumns runes and groups the
// resulting lines into pageLines-line pages separated by form feeds.
func paginate(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		lines = append(lines, wrapLine(line, pageColumns)...)
	}
	// Drop trailing blank lines left by the final paragraph newline.
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	var pages []string
	for start := 0; start < len(lines); start += pageLines {
		end := start + pageLines
		if end > len(lines) {
			end = len(lines)
		}
		pages = append(pages, strings.Join(lines[start:end], "\n"))
	}
	return strings.Join(pages, "\f")
}

// wrapLine breaks a line at word boundaries, falling back to a hard break for
// a single word longer than the width.
func wrapLine(line string, width int) []string {
	runes := []rune(line)
	if len(runes) <= width {
		return []string{line}
	}

	var wrapped []string
	for len(runes) > width {
		cut := width
		for cut > 0 && runes[cut] != ' ' && runes[cut] != '\t' {
			cut--
		}
		if cut == 0 {
			cut = width
		}
		wrapped = append(wrapped, strings.TrimRight(string(runes[:cut]), " \t"))
		for cut < len(runes) && (runes[cut] == ' ' || runes[cut] == '\t') {
			cut++
		}
		runes = runes[cut:]
	}
	wrapped = append(wrapped, string(runes))
	return wrapped
}
