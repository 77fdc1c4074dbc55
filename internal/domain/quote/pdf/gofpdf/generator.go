package gofpdf

import (
	"bytes"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"naturezabrindes/quote_backend/internal/domain/quote"
)

type Generator struct {
	Company string
	now     func() time.Time
}

func New(company string) *Generator {
	return &Generator{Company: company, now: time.Now}
}

func (g *Generator) Generate(q quote.Quote) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	// Core fonts are cp1252; the translator keeps Portuguese accents intact.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Solicitação de Orçamento "+q.Reference), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr("Solicitação de Orçamento"))
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Nº %s de %s", q.Reference, q.CreatedAt.Format("02/01/2006"))))
	pdf.Ln(6)
	pdf.Cell(0, 6, tr("Status: "+statusLabel(q.Status)))
	pdf.Ln(6)

	if c := q.Customer; c != nil {
		pdf.Cell(0, 6, tr(fmt.Sprintf("Cliente: %s <%s>", c.Name, c.Email)))
		pdf.Ln(6)
		if c.Company != "" || c.Phone != "" {
			pdf.Cell(0, 6, tr(strings.TrimSpace(fmt.Sprintf("%s %s", c.Company, c.Phone))))
			pdf.Ln(6)
		}
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(20, 7, tr("Código"))
	pdf.Cell(90, 7, "Produto")
	pdf.Cell(30, 7, "Cor")
	pdf.Cell(50, 7, "Quantidades")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	for _, it := range q.Items {
		code := "-"
		if it.ProductCode != nil {
			code = *it.ProductCode
		}
		pdf.Cell(20, 6, tr(trim(code, 10)))
		pdf.Cell(90, 6, tr(trim(it.ProductName, 48)))
		pdf.Cell(30, 6, tr(trim(it.Color, 14)))
		pdf.Cell(50, 6, quantities(it))
		pdf.Ln(6)
	}

	if q.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(0, 7, tr("Observações"))
		pdf.Ln(7)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(q.Notes), "", "L", false)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, 5, tr(g.Company))
	pdf.Ln(5)
	pdf.Cell(0, 5, fmt.Sprintf("Gerado em: %s", g.now().Format(time.RFC3339)))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		log.Printf("quote pdf: output failed quote_id=%s err=%v", q.ID, err)
		return nil, err
	}
	return buf.Bytes(), nil
}

func quantities(it quote.LineItem) string {
	qs := it.Quantities()
	if len(qs) == 0 {
		if it.Free {
			return "brinde"
		}
		return "-"
	}
	parts := make([]string, len(qs))
	for i, n := range qs {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, " / ")
}

func statusLabel(s quote.Status) string {
	switch s {
	case quote.StatusApproved:
		return "aprovado"
	case quote.StatusRejected:
		return "rejeitado"
	case quote.StatusCompleted:
		return "concluído"
	default:
		return "pendente"
	}
}

func trim(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
