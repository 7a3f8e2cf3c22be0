// Package report renders chat responses into downloadable PDF transcripts.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// Renderer writes a text report and returns the path of the generated file.
type Renderer interface {
	Render(content string) (string, error)
}

// PDFRenderer implements Renderer with fpdf, one timestamped file per call.
type PDFRenderer struct {
	dir string
}

// NewPDFRenderer creates a renderer writing into dir.
func NewPDFRenderer(dir string) *PDFRenderer {
	if dir == "" {
		dir = "pdfs"
	}
	return &PDFRenderer{dir: dir}
}

// Render writes the content into a fresh PDF file.
func (r *PDFRenderer) Render(content string) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	filename := fmt.Sprintf("report_%s.pdf", time.Now().UTC().Format("20060102_150405"))
	path := filepath.Join(r.dir, filename)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "", 12)

	for _, line := range strings.Split(content, "\n") {
		pdf.MultiCell(0, 10, line, "", "L", false)
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write pdf report: %w", err)
	}
	return path, nil
}
