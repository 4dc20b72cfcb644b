// Package extract turns downloaded PDF files into per-page text and
// feeds the append-only batch store.
package extract

import (
	"fmt"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageExtractor yields the ordered per-page text of a document. A page
// with no extractable text is an empty string, never an error.
type PageExtractor interface {
	Pages(path string) ([]string, error)
}

// PDFExtractor validates PDF structure with pdfcpu before extracting
// plain text page by page. Structurally broken files fail fast with a
// precise error instead of surfacing as garbled text downstream.
type PDFExtractor struct {
	conf *model.Configuration
}

// NewPDFExtractor creates an extractor with relaxed validation, which
// tolerates the format violations common in agency-produced PDFs.
func NewPDFExtractor() *PDFExtractor {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	return &PDFExtractor{conf: conf}
}

// Pages implements PageExtractor.
func (e *PDFExtractor) Pages(path string) ([]string, error) {
	if err := api.ValidateFile(path, e.conf); err != nil {
		return nil, fmt.Errorf("pdf validation failed for %s: %w", path, err)
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf %s: %w", path, err)
	}
	defer f.Close()

	total := reader.NumPage()
	pages := make([]string, 0, total)

	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Unextractable page content, not a document failure.
			text = ""
		}

		pages = append(pages, text)
	}

	return pages, nil
}
