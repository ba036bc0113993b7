package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFOptions tunes page layout. Zero values fall back to a portrait A4 page
// with evenly sized columns.
type PDFOptions struct {
	Landscape bool
	Subtitle  string
	// ColumnWeights sizes columns relative to each other, keyed by header.
	ColumnWeights map[string]float64
}

// PDFExporter renders datasets into a bordered tabular PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a portrait PDF document with an optional title.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	return e.RenderWithOptions(data, title, PDFOptions{})
}

// RenderWithOptions creates a PDF document using the provided layout options.
func (e *PDFExporter) RenderWithOptions(data Dataset, title string, opts PDFOptions) ([]byte, error) {
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("pdf: %w", err)
	}
	orientation := "P"
	usable := 190.0
	if opts.Landscape {
		orientation = "L"
		usable = 277.0
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(strings.ToUpper(title)), "", 1, "C", false, 0, "")
	}
	if opts.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, tr(opts.Subtitle), "", 1, "C", false, 0, "")
	}
	if title != "" || opts.Subtitle != "" {
		pdf.Ln(4)
	}

	widths := columnWidths(data.Headers, opts.ColumnWeights, usable)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, header := range data.Headers {
		pdf.CellFormat(widths[i], 8, tr(header), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for i, header := range data.Headers {
			pdf.CellFormat(widths[i], 7, tr(fitText(pdf, row[header], widths[i])), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(headers []string, weights map[string]float64, usable float64) []float64 {
	total := 0.0
	resolved := make([]float64, len(headers))
	for i, h := range headers {
		w := weights[h]
		if w <= 0 {
			w = 1
		}
		resolved[i] = w
		total += w
	}
	for i := range resolved {
		resolved[i] = usable * resolved[i] / total
	}
	return resolved
}

// fitText truncates a value so it stays inside its cell.
func fitText(pdf *gofpdf.Fpdf, value string, width float64) string {
	limit := width - 2
	if pdf.GetStringWidth(value) <= limit {
		return value
	}
	runes := []rune(value)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
