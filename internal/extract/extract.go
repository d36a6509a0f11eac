package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

const pdfMagic = "%PDF-"

// Document is the plain text of an uploaded PDF.
type Document struct {
	Pages     []string
	Text      string
	PageCount int
}

// pageSource is the slice of the PDF reader the extractor depends on.
type pageSource interface {
	NumPage() int
	PageText(num int) (string, error)
}

// ValidateUpload rejects uploads whose name or leading bytes do not indicate a PDF.
func ValidateUpload(fileName string, head []byte) error {
	if !strings.EqualFold(filepath.Ext(strings.TrimSpace(fileName)), ".pdf") {
		return fmt.Errorf("%w: expected a .pdf file name", ErrNotPDF)
	}
	trimmed := bytes.TrimLeft(head, "\x00\t\r\n \xef\xbb\xbf")
	if !bytes.HasPrefix(trimmed, []byte(pdfMagic)) {
		return fmt.Errorf("%w: missing %s header", ErrNotPDF, pdfMagic)
	}
	return nil
}

// ExtractPDF returns the text of every page concatenated in document order.
// Library used: github.com/ledongthuc/pdf.
func ExtractPDF(ctx context.Context, data []byte) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if len(data) == 0 {
		return Document{}, &DocumentReadError{Err: errors.New("empty file")}
	}
	src, err := openPDF(data)
	if err != nil {
		return Document{}, &DocumentReadError{Err: err}
	}
	return collectPages(ctx, src)
}

func collectPages(ctx context.Context, src pageSource) (Document, error) {
	total := src.NumPage()
	pages := make([]string, 0, total)
	var buf strings.Builder
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return Document{}, err
		}
		text, err := src.PageText(i)
		if err != nil {
			return Document{}, &DocumentReadError{Err: fmt.Errorf("page %d: %w", i, err)}
		}
		pages = append(pages, text)
		buf.WriteString(text)
	}
	return Document{Pages: pages, Text: buf.String(), PageCount: total}, nil
}

type ledongthucSource struct {
	r *pdf.Reader
}

func openPDF(data []byte) (src pageSource, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("parse pdf: %v", rec)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return ledongthucSource{r: r}, nil
}

func (s ledongthucSource) NumPage() int {
	return s.r.NumPage()
}

// PageText returns "" for pages without a content stream.
func (s ledongthucSource) PageText(num int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("read text: %v", rec)
		}
	}()
	page := s.r.Page(num)
	if page.V.IsNull() || page.V.Key("Contents").IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}
