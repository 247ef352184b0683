package extract

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Document is extracted text plus whatever metadata the source format carries.
type Document struct {
	Text     string `json:"text"`
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	Language string `json:"language,omitempty"`
}

// FromPlainText wraps raw bytes as a document. Invalid UTF-8 sequences are
// replaced rather than rejected; a BOM is stripped.
func FromPlainText(data []byte) (*Document, error) {
	text := string(data)
	text = strings.TrimPrefix(text, "\uFEFF")
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("document contains no text")
	}
	return &Document{Text: text}, nil
}

// FromFile dispatches on the filename extension. Supported: .txt, .epub.
func FromFile(name string, data []byte) (*Document, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".text", "":
		return FromPlainText(data)
	case ".epub":
		return FromEPUB(data)
	default:
		return nil, fmt.Errorf("unsupported file type %q (want .txt or .epub)", filepath.Ext(name))
	}
}
