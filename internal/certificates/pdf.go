package certificates

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"visionestate/listing-portal/listing-portal-backend/internal/verification"
)

// Options configures certificate rendering
type Options struct {
	Issuer      string
	DateFormat  string
	FontFamily  string
	AccentColor Color
	Margins     Margins
}

// Color represents an RGB color
type Color struct {
	R, G, B int
}

// Margins represents page margins in mm
type Margins struct {
	Left, Right, Top, Bottom float64
}

func DefaultOptions() Options {
	return Options{
		Issuer:      "Listing Portal Verification Desk",
		DateFormat:  "02 Jan 2006",
		FontFamily:  "Arial",
		AccentColor: Color{R: 34, G: 139, B: 84},
		Margins:     Margins{Left: 20, Right: 20, Top: 25, Bottom: 20},
	}
}

// Render draws the verification certificate for a verified listing
func Render(view *verification.View, issuedAt time.Time, opts Options) ([]byte, error) {
	rec := view.Record
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(opts.Margins.Left, opts.Margins.Top, opts.Margins.Right)
	pdf.SetAutoPageBreak(true, opts.Margins.Bottom)
	pdf.SetTitle("Verification Certificate", true)
	pdf.SetAuthor(opts.Issuer, true)
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()
	pdf.SetDrawColor(opts.AccentColor.R, opts.AccentColor.G, opts.AccentColor.B)
	pdf.SetLineWidth(1.2)
	pdf.Rect(10, 10, pageW-20, pageH-20, "D")

	pdf.SetFont(opts.FontFamily, "B", 22)
	pdf.SetTextColor(opts.AccentColor.R, opts.AccentColor.G, opts.AccentColor.B)
	pdf.CellFormat(0, 14, "Certificate of Verification", "", 1, "C", false, 0, "")

	pdf.SetFont(opts.FontFamily, "", 11)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 7, fmt.Sprintf("Issued %s by %s", issuedAt.Format(opts.DateFormat), opts.Issuer), "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont(opts.FontFamily, "B", 16)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(0, 9, rec.Title, "", "C", false)
	pdf.Ln(6)

	section(pdf, opts, "Listing")
	row(pdf, opts, "Property ID", rec.PropertyID.String())
	row(pdf, opts, "Seller", rec.SellerName)
	if loc := location(rec); loc != "" {
		row(pdf, opts, "Location", loc)
	}
	if rec.Claimed.Area != nil {
		row(pdf, opts, "Declared area", fmt.Sprintf("%.1f sq.m", *rec.Claimed.Area))
	}

	section(pdf, opts, "Checks performed")
	if rec.AIMetrics != nil {
		row(pdf, opts, "AI estimated area", fmt.Sprintf("%.1f sq.m (%.0f%% confidence)", rec.AIMetrics.EstimatedArea, rec.AIMetrics.Confidence))
	}
	row(pdf, opts, "Analysis outcome", view.Verdict.Recommendation)
	for _, dt := range verification.RequiredDocumentTypes {
		state := "Missing"
		if len(rec.Documents[dt]) > 0 {
			state = "Reviewed"
		}
		row(pdf, opts, "Document: "+string(dt), state)
	}
	if rec.Inspection != nil && rec.Inspection.CompletedAt != nil {
		row(pdf, opts, "Physical inspection", fmt.Sprintf("%s on %s", rec.Inspection.InspectorName, rec.Inspection.CompletedAt.Format(opts.DateFormat)))
	}
	if rec.PaymentID != "" {
		row(pdf, opts, "Fee reference", rec.PaymentID)
	}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-22)
		pdf.SetFont(opts.FontFamily, "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 6, "This certificate reflects the documents and photos available at the time of verification.", "", 0, "C", false, 0, "")
	})

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render certificate: %w", err)
	}
	return buf.Bytes(), nil
}

func section(pdf *gofpdf.Fpdf, opts Options, title string) {
	pdf.Ln(4)
	pdf.SetFont(opts.FontFamily, "B", 12)
	pdf.SetTextColor(opts.AccentColor.R, opts.AccentColor.G, opts.AccentColor.B)
	pdf.CellFormat(0, 8, title, "B", 1, "L", false, 0, "")
	pdf.Ln(2)
}

func row(pdf *gofpdf.Fpdf, opts Options, label, value string) {
	pdf.SetFont(opts.FontFamily, "B", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(55, 7, label+":", "", 0, "L", false, 0, "")
	pdf.SetFont(opts.FontFamily, "", 10)
	pdf.CellFormat(0, 7, value, "", 1, "L", false, 0, "")
}

func location(rec *verification.Record) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{rec.Address, rec.City, rec.Pincode} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
