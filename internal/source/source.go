package source

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Load returns the raw text of the document at path. PDFs are reduced to
// their plain text; .txt and .md files are read as UTF-8.
func Load(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return loadPDF(path)
	case ".txt", ".md", ".markdown", "":
		return loadText(path)
	default:
		return "", fmt.Errorf("unsupported document type: %s", path)
	}
}

func loadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s is not valid UTF-8", path)
	}
	return string(data), nil
}

func loadPDF(path string) (string, error) {
	f, rdr, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	b, err := rdr.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, b); err != nil {
		return "", fmt.Errorf("read pdf buffer: %w", err)
	}
	text := buf.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text extracted from %s", path)
	}
	return text, nil
}
