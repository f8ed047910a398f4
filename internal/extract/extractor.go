// Package extract provides text extraction from uploaded document files.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for extensions outside {txt, pdf, docx}.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrExtractionEmpty is returned when a PDF or DOCX yields no extractable
// text (image-only or encrypted documents, typically).
var ErrExtractionEmpty = errors.New("no extractable text")

// Extractor extracts plain text from supported document formats.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supported reports whether the extension (with or without leading dot)
// names a supported format.
func Supported(ext string) bool {
	switch normalizeExt(ext) {
	case ".txt", ".pdf", ".docx":
		return true
	}
	return false
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, filepath.Ext(path))
}

// ExtractBytes extracts text from content based on ext. Unsupported
// extensions fail with ErrUnsupportedFormat; a PDF or DOCX with no text
// fails with ErrExtractionEmpty.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch normalizeExt(ext) {
	case ".txt":
		return extractPlain(content)
	case ".pdf":
		return requireText(extractPDF(content))
	case ".docx":
		return requireText(extractDOCX(content))
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func requireText(text string, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrExtractionEmpty
	}
	return text, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
