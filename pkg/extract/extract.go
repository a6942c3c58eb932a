// Package extract pulls searchable plain text out of uploaded attachments.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

// ErrUnsupported is returned for attachment formats without a text extractor.
var ErrUnsupported = errors.New("unsupported document format")

// MaxTextRunes caps the extracted text stored on an item.
const MaxTextRunes = 1 << 20

type Kind string

const (
	KindPDF  Kind = "pdf"
	KindHTML Kind = "html"
	KindText Kind = "text"
)

// Detect picks an extractor from the file extension, falling back to the content type.
func Detect(filename, contentType string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return KindPDF, nil
	case ".html", ".htm", ".xhtml":
		return KindHTML, nil
	case ".txt", ".md", ".text":
		return KindText, nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", ErrUnsupported
	}
	switch {
	case mediaType == "application/pdf":
		return KindPDF, nil
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		return KindHTML, nil
	case strings.HasPrefix(mediaType, "text/"):
		return KindText, nil
	}
	return "", ErrUnsupported
}

// Text extracts normalized text from an attachment.
func Text(filename, contentType string, data []byte) (string, error) {
	kind, err := Detect(filename, contentType)
	if err != nil {
		return "", err
	}
	var text string
	switch kind {
	case KindPDF:
		text, err = pdfText(data)
	case KindHTML:
		text, err = htmlText(data)
	default:
		text = string(data)
	}
	if err != nil {
		return "", err
	}
	return truncateRunes(normalizeText(text), MaxTextRunes), nil
}

func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var buf strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// skip unreadable pages
			continue
		}
		buf.WriteString(text)
		buf.WriteString(" ")
	}
	if strings.TrimSpace(buf.String()) == "" {
		return "", errors.New("no text extracted from pdf")
	}
	return buf.String(), nil
}

func htmlText(data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			buf.WriteString(node.Data)
			buf.WriteString(" ")
		case html.ElementNode:
			if node.Data == "script" || node.Data == "style" || node.Data == "head" {
				return
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return buf.String(), nil
}

func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\x00", " ")
	text = strings.ToValidUTF8(text, "")
	return strings.Join(strings.Fields(text), " ")
}

func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
