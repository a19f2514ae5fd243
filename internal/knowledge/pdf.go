package knowledge

import (
	"context"
	"fmt"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
)

// PDFReader returns the plain text of every page of a PDF, in page order.
type PDFReader interface {
	Pages(ctx context.Context, path string) ([]string, error)
}

// NewPDFReader picks a reader by engine name: "native" or "mupdf".
func NewPDFReader(engine string) (PDFReader, error) {
	switch engine {
	case "", "native":
		return NativePDFReader{}, nil
	case "mupdf":
		return MuPDFReader{}, nil
	default:
		return nil, fmt.Errorf("unknown pdf engine %q", engine)
	}
}

// NativePDFReader extracts text with the pure Go ledongthuc/pdf parser.
type NativePDFReader struct{}

func (NativePDFReader) Pages(ctx context.Context, path string) (pages []string, err error) {
	// the parser panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("parsing %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("reading %s page %d: %w", path, i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// MuPDFReader extracts text through MuPDF (gen2brain/go-fitz).
type MuPDFReader struct{}

func (MuPDFReader) Pages(ctx context.Context, path string) ([]string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer doc.Close()

	n := doc.NumPage()
	pages := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := doc.Text(i)
		if err != nil {
			return nil, fmt.Errorf("reading %s page %d: %w", path, i+1, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}
