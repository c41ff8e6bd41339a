package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// StoryPanel is one page of a rendered storybook.
type StoryPanel struct {
	Heading string
	Text    string
}

// StoryDocument describes a storybook to render as a PDF, one panel per page.
type StoryDocument struct {
	Title  string
	Author string
	Panels []StoryPanel
}

// PDFExporter renders datasets and storybooks into PDF bytes.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	pdf.SetFont("Arial", "B", 10)
	colWidth := 190.0 / float64(len(data.Headers))
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			value := row[header]
			pdf.CellFormat(colWidth, 7, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderStory creates a storybook PDF: a cover page followed by one page per
// panel.
func (e *PDFExporter) RenderStory(doc StoryDocument) ([]byte, error) {
	if len(doc.Panels) == 0 {
		return nil, fmt.Errorf("story requires at least one panel")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 22)
	pdf.Ln(60)
	pdf.CellFormat(0, 14, doc.Title, "", 1, "C", false, 0, "")
	if doc.Author != "" {
		pdf.SetFont("Arial", "", 12)
		pdf.Ln(8)
		pdf.CellFormat(0, 8, doc.Author, "", 1, "C", false, 0, "")
	}

	for _, panel := range doc.Panels {
		pdf.AddPage()
		if panel.Heading != "" {
			pdf.SetFont("Arial", "B", 14)
			pdf.CellFormat(0, 10, panel.Heading, "", 1, "L", false, 0, "")
			pdf.Ln(4)
		}
		pdf.SetFont("Arial", "", 11)
		pdf.MultiCell(0, 7, panel.Text, "", "L", false)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render story pdf: %w", err)
	}
	return buf.Bytes(), nil
}
