package extract

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrNoText          = errors.New("no text extracted")
	ErrUnreadable      = errors.New("unreadable file")
)

// File type tags stored on documents.
const (
	TypePDF  = "pdf"
	TypeHTML = "html"
	TypeText = "txt"
	TypeMD   = "md"
)

// FileType maps a filename to its document type tag.
func FileType(filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return TypePDF, nil
	case ".html", ".htm":
		return TypeHTML, nil
	case ".txt", "":
		return TypeText, nil
	case ".md", ".markdown":
		return TypeMD, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(filename))
	}
}

// Text pulls plain text out of an uploaded file and returns it with the file
// type tag.
func Text(filename string, data []byte) (string, string, error) {
	fileType, err := FileType(filename)
	if err != nil {
		return "", "", err
	}
	var text string
	switch fileType {
	case TypePDF:
		text, err = pdfText(data)
	case TypeHTML:
		text, err = htmlText(data)
	default:
		text = normalizeText(string(data))
	}
	if err != nil {
		return "", "", err
	}
	if text == "" {
		return "", "", ErrNoText
	}
	return text, fileType, nil
}

func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %v", ErrUnreadable, err)
	}
	pages := make([]string, 0, reader.NumPage())
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
		if text = normalizeText(text); text != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

func htmlText(data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: parse html: %v", ErrUnreadable, err)
	}
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			buf.WriteString(node.Data)
			buf.WriteString(" ")
		case html.ElementNode:
			if node.Data == "script" || node.Data == "style" || node.Data == "noscript" {
				return
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if node.Type == html.ElementNode && isBlock(node.Data) {
			buf.WriteString("\n")
		}
	}
	walk(doc)
	return normalizeText(buf.String()), nil
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "br", "div", "li", "h1", "h2", "h3", "h4", "h5", "h6", "tr", "section", "article":
		return true
	}
	return false
}

// normalizeText drops NULs and invalid UTF-8, collapses runs of spaces within
// a line and keeps paragraph breaks.
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\x00", " ")
	text = strings.ToValidUTF8(text, "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank = true
			continue
		}
		if blank && len(out) > 0 {
			out = append(out, "")
		}
		blank = false
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
