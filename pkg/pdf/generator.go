package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Generator renders document PDFs from template data.
type Generator interface {
	Generate(ctx context.Context, templateID string, title string, fields map[string]string) (io.Reader, error)
}

type fpdfGenerator struct{}

func NewGenerator() Generator {
	return &fpdfGenerator{}
}

func (g *fpdfGenerator) Generate(ctx context.Context, templateID string, title string, fields map[string]string) (io.Reader, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetTitle(title, true)
	doc.SetAutoPageBreak(true, 15)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(0, 10, title, "", 1, "C", false, 0, "")

	doc.SetFont("Helvetica", "", 9)
	doc.SetTextColor(120, 120, 120)
	doc.CellFormat(0, 6, fmt.Sprintf("Template %s, generated %s", templateID, time.Now().Format("2006-01-02 15:04")), "", 1, "C", false, 0, "")
	doc.Ln(4)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	doc.SetTextColor(0, 0, 0)
	for _, k := range keys {
		doc.SetFont("Helvetica", "B", 11)
		doc.CellFormat(60, 8, k, "B", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 11)
		doc.MultiCell(0, 8, fields[k], "B", "L", false)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	return &buf, nil
}
