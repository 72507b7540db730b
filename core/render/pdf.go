// Package render lays out the extracted questions as a printable PDF:
// objective questions with their options first, theory questions after,
// answers and explanations in a muted style under each question.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"beceharvest/core"
)

// PaperRenderer renders a question document as a printable PDF.
type PaperRenderer struct {
	// IncludeAnswers controls whether answers and explanations appear.
	IncludeAnswers bool
}

// NewPaperRenderer creates a PaperRenderer that includes answers.
func NewPaperRenderer() *PaperRenderer {
	return &PaperRenderer{IncludeAnswers: true}
}

// Render converts the document into PDF bytes.
func (r *PaperRenderer) Render(doc *core.PaperDocument) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	title := fmt.Sprintf("%s %d - BECE Past Questions",
		titleCase(doc.Metadata.Subject), doc.Metadata.Year)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 8, title, "", "L", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.MultiCell(0, 5, "Source: "+doc.Metadata.SourceURL, "", "L", false)
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	if len(doc.Objectives) > 0 {
		r.renderSection(pdf, "Objective Test", doc.Objectives)
	}
	if len(doc.Theory) > 0 {
		r.renderSection(pdf, "Theory Questions", doc.Theory)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for PDF output.
func (r *PaperRenderer) Extension() string {
	return ".pdf"
}

func (r *PaperRenderer) renderSection(pdf *gofpdf.Fpdf, heading string, records []core.QuestionRecord) {
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.MultiCell(0, 8, heading, "", "L", false)
	pdf.Ln(2)

	for _, q := range records {
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, fmt.Sprintf("%d. %s", q.Number, q.Text), "", "L", false)

		if len(q.Options) > 0 {
			left, _, _, _ := pdf.GetMargins()
			pdf.SetLeftMargin(left + 6)
			for _, opt := range q.Options {
				pdf.MultiCell(0, 5, opt, "", "L", false)
			}
			pdf.SetLeftMargin(left)
		}

		if r.IncludeAnswers && (q.CorrectAnswer != "" || q.Explanation != "") {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.SetTextColor(100, 100, 100)
			if q.CorrectAnswer != "" {
				pdf.MultiCell(0, 4.5, "Answer: "+q.CorrectAnswer, "", "L", false)
			}
			if q.Explanation != "" {
				pdf.MultiCell(0, 4.5, q.Explanation, "", "L", false)
			}
			pdf.SetTextColor(0, 0, 0)
		}
		pdf.Ln(3)
	}
}

func titleCase(subject string) string {
	words := strings.Split(strings.ReplaceAll(subject, "-", " "), " ")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
