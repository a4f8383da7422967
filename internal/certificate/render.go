// Package certificate renders participation and excellence certificates as
// PDF documents and runs batch generation with per-item error isolation.
package certificate

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/iliyamo/fest-registration/internal/model"
)

// Template selects the certificate layout.
type Template string

const (
	Participation Template = "participation"
	Excellence    Template = "excellence"
)

// Data is everything printed on a certificate.
type Data struct {
	Name       string
	College    string
	TeamName   string
	EventTitle string
	FestName   string
	Date       time.Time
	Rank       int
}

// Renderer produces document bytes for a template.
type Renderer interface {
	Render(tmpl Template, d Data) ([]byte, error)
}

// TemplateFor picks excellence for winners with a rank, else participation.
func TemplateFor(p model.Participant) Template {
	if p.IsWinner && p.Rank != nil {
		return Excellence
	}
	return Participation
}

// DataFor assembles the printable fields for a participant.
func DataFor(p model.Participant, ev model.Event, festName string) Data {
	d := Data{
		Name:       p.Name,
		College:    p.College,
		TeamName:   p.TeamName,
		EventTitle: ev.Title,
		FestName:   festName,
		Date:       ev.Date,
	}
	if p.Rank != nil {
		d.Rank = *p.Rank
	}
	return d
}

// PDF renders A4 landscape certificates with the core Helvetica font.
type PDF struct {
	Issuer string
}

func (r PDF) Render(tmpl Template, d Data) ([]byte, error) {
	if strings.TrimSpace(d.Name) == "" {
		return nil, fmt.Errorf("certificate: participant name is empty")
	}
	pdf := fpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(fmt.Sprintf("%s certificate - %s", tmpl, d.EventTitle), true)
	pdf.SetAuthor(r.issuer(), true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	w, h := pdf.GetPageSize()
	pdf.SetLineWidth(1.2)
	if tmpl == Excellence {
		pdf.SetDrawColor(191, 144, 0)
	} else {
		pdf.SetDrawColor(40, 70, 140)
	}
	pdf.Rect(10, 10, w-20, h-20, "D")
	pdf.SetLineWidth(0.4)
	pdf.Rect(14, 14, w-28, h-28, "D")

	heading := "Certificate of Participation"
	if tmpl == Excellence {
		heading = "Certificate of Excellence"
	}

	pdf.SetXY(20, 40)
	pdf.SetFont("Helvetica", "B", 30)
	pdf.SetTextColor(30, 30, 30)
	pdf.CellFormat(w-40, 14, tr(heading), "", 1, "C", false, 0, "")

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(w-40, 8, tr("This is to certify that"), "", 1, "C", false, 0, "")

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 24)
	pdf.CellFormat(w-40, 12, tr(d.Name), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 14)
	if d.College != "" {
		pdf.CellFormat(w-40, 8, tr("of "+d.College), "", 1, "C", false, 0, "")
	}
	if d.TeamName != "" {
		pdf.CellFormat(w-40, 8, tr("representing team "+d.TeamName), "", 1, "C", false, 0, "")
	}

	pdf.Ln(4)
	line := "has participated in " + d.EventTitle
	if tmpl == Excellence {
		line = fmt.Sprintf("has secured %s place in %s", Ordinal(d.Rank), d.EventTitle)
	}
	if d.FestName != "" {
		line += " at " + d.FestName
	}
	pdf.CellFormat(w-40, 8, tr(line), "", 1, "C", false, 0, "")
	if !d.Date.IsZero() {
		pdf.CellFormat(w-40, 8, tr("held on "+d.Date.Format("2 January 2006")), "", 1, "C", false, 0, "")
	}

	pdf.SetXY(20, h-45)
	pdf.SetFont("Helvetica", "I", 12)
	pdf.CellFormat(w-40, 8, tr(r.issuer()), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("certificate: render %s: %w", tmpl, err)
	}
	return buf.Bytes(), nil
}

func (r PDF) issuer() string {
	if r.Issuer == "" {
		return "Organising Committee"
	}
	return r.Issuer
}

// Ordinal formats 1 as "1st", 2 as "2nd", 11 as "11th" and so on.
func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
