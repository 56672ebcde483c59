// Package resume handles resume uploads: text extraction, optional object
// storage of the original file and the database record.
package resume

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

const (
	MimeText = "text/plain"
	MimePDF  = "application/pdf"
	MimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var ErrUnsupportedType = errors.New("unsupported file type")

var extMimes = map[string]string{
	".txt":  MimeText,
	".pdf":  MimePDF,
	".docx": MimeDocx,
}

// DetectMime picks the extraction type from the declared content type,
// falling back to the file extension when the client sent a generic one.
func DetectMime(declared, filename string) string {
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			switch mt {
			case MimeText, MimePDF, MimeDocx:
				return mt
			}
		}
	}
	if mt, ok := extMimes[strings.ToLower(filepath.Ext(filename))]; ok {
		return mt
	}
	return declared
}

func ExtractText(mimeType string, data []byte) (string, error) {
	switch mimeType {
	case MimeText:
		return string(data), nil
	case MimePDF:
		return extractPDFText(data)
	case MimeDocx:
		return extractDocxText(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
}

func extractPDFText(data []byte) (string, error) {
	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}
	var sb strings.Builder
	for i := 1; i <= pdfReader.NumPage(); i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, _ := page.GetPlainText(nil)
		sb.WriteString(text)
	}
	return sb.String(), nil
}

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>`)
	xmlTag           = regexp.MustCompile(`<[^>]+>`)
)

func extractDocxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	// GetContent returns document.xml; keep paragraph breaks, drop markup.
	content := docxParagraphEnd.ReplaceAllString(doc.Editable().GetContent(), "\n")
	return strings.TrimSpace(xmlTag.ReplaceAllString(content, "")), nil
}
