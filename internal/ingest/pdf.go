package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ReadPDF extracts plain text from a PDF file. Pages are joined with form
// feeds so the normalizer can spot repeated page furniture. Pages that fail
// to extract are skipped; a document where every page fails is malformed.
func ReadPDF(path string) (Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n\f")
	}

	text := strings.Trim(sb.String(), "\f\n \t")
	if text == "" {
		return Document{}, fmt.Errorf("no extractable text in %s (scanned or image-only PDF?)", path)
	}

	return Document{Source: path, Text: text}, nil
}

// ReadFile загружает документ с диска, по расширению
func ReadFile(path string) (Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return ReadPDF(path)
	case ".md", ".markdown", ".txt", ".text":
		b, err := os.ReadFile(path)
		if err != nil {
			return Document{}, fmt.Errorf("failed to read file: %w", err)
		}
		return Document{Source: path, Text: string(b)}, nil
	default:
		return Document{}, fmt.Errorf("unsupported format: %s", filepath.Ext(path))
	}
}
