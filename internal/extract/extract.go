// Package extract turns uploaded files into raw text for the classification pipeline.
package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileExtractor reads plain-text and JSON files. Every other format yields no
// text; image OCR and document parsing are left to external tooling.
type FileExtractor struct{}

// NewFileExtractor creates an extractor.
func NewFileExtractor() *FileExtractor {
	return &FileExtractor{}
}

// Extract returns the text content of path, or "" for unsupported formats.
func (FileExtractor) Extract(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		data, err := os.ReadFile(path) // #nosec G304 -- caller-supplied upload path
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
		}
		return string(data), nil
	case ".json":
		return extractJSON(path)
	default:
		return "", nil
	}
}

// extractJSON lists a top-level array of strings one per line and re-encodes
// anything else compactly.
func extractJSON(path string) (string, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- caller-supplied upload path
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}

	var lines []string
	if err := json.Unmarshal(data, &lines); err == nil {
		return strings.Join(lines, "\n"), nil
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return "", fmt.Errorf("invalid JSON in %s: %w", filepath.Base(path), err)
	}
	return compact.String(), nil
}
