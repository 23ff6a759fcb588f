package input

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"resumeform/internal/types"
	"resumeform/internal/utils"

	"github.com/ledongthuc/pdf"
)

var xmlTags = regexp.MustCompile(`<[^>]+>`)

// Describe returns a short human readable hint for a chosen file,
// e.g. "PDF, 2 pages, 84.2 KB". It never fails; unreadable content just
// yields a shorter hint.
func Describe(file *types.SelectedFile) string {
	if file == nil {
		return ""
	}

	size := file.Size
	if size == 0 {
		size = int64(len(file.Content))
	}

	ext := utils.GetFileExtension(file.Name)
	parts := []string{strings.ToUpper(ext)}
	if ext == "" {
		parts[0] = "file"
	}

	switch ext {
	case "pdf":
		if n, err := PDFPageCount(file.Content); err == nil {
			parts = append(parts, plural(n, "page"))
		}
	case "docx":
		if n, err := DocxWordCount(file.Content); err == nil {
			parts = append(parts, plural(n, "word"))
		}
	case "txt":
		if len(file.Content) > 0 {
			parts = append(parts, plural(len(strings.Fields(string(file.Content))), "word"))
		}
	}

	parts = append(parts, utils.FormatFileSize(size))
	return strings.Join(parts, ", ")
}

// PDFPageCount reports the number of pages of a PDF document
func PDFPageCount(content []byte) (n int, err error) {
	if len(content) == 0 {
		return 0, fmt.Errorf("empty PDF content")
	}
	// the parser panics on some malformed cross-reference tables
	defer func() {
		if p := recover(); p != nil {
			n, err = 0, fmt.Errorf("malformed PDF: %v", p)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	return r.NumPage(), nil
}

// DocxWordCount counts words in the main document part of a .docx file
func DocxWordCount(content []byte) (int, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0, fmt.Errorf("failed to open docx: %w", err)
	}

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return 0, err
		}
		doc, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return 0, err
		}
		text := strings.ReplaceAll(string(doc), "</w:p>", "\n")
		text = xmlTags.ReplaceAllString(text, " ")
		return len(strings.Fields(text)), nil
	}
	return 0, fmt.Errorf("no document.xml found in docx")
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
