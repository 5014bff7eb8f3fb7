package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/FIXCOse/fixco-platform/internal/customers"
	"github.com/FIXCOse/fixco-platform/internal/invoices"
	"github.com/FIXCOse/fixco-platform/internal/pricing"
	"github.com/FIXCOse/fixco-platform/internal/quotes"
)

// HTMLRenderer converts HTML to a PDF. Satisfied by *Client.
type HTMLRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Renderer builds customer-facing quote and invoice documents.
type Renderer struct {
	pdf HTMLRenderer
}

// NewRenderer constructs a Renderer backed by the given PDF converter.
func NewRenderer(pdf HTMLRenderer) *Renderer {
	return &Renderer{pdf: pdf}
}

var sek = message.NewPrinter(language.Swedish)

// formatSEK renders whole kronor with Swedish digit grouping ("12 000 kr").
func formatSEK(d decimal.Decimal) string {
	f, _ := d.Float64()
	return sek.Sprintf("%.0f kr", f)
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

type documentLine struct {
	Description string
	Quantity    string
	UnitPrice   string
	Amount      string
}

type totalRow struct {
	Label    string
	Value    string
	Emphasis bool
}

type documentData struct {
	Kind       string
	DocNumber  string
	Date       string
	SecondDate string // valid-until for quotes, due date for invoices
	SecondName string
	Customer   *customers.Customer
	Lines      []documentLine
	Totals     []totalRow
	Notes      string
}

var documentTemplate = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html lang="sv">
<head>
<meta charset="utf-8">
<style>
body { font-family: Helvetica, Arial, sans-serif; font-size: 12px; color: #1a1a1a; margin: 40px; }
h1 { font-size: 20px; margin-bottom: 2px; }
.meta { color: #555; margin-bottom: 24px; }
table { width: 100%; border-collapse: collapse; margin-bottom: 24px; }
th { text-align: left; border-bottom: 2px solid #1a1a1a; padding: 6px 4px; }
td { border-bottom: 1px solid #ddd; padding: 6px 4px; }
.num { text-align: right; }
.totals td { border: none; padding: 3px 4px; }
.totals .emphasis td { font-weight: bold; border-top: 2px solid #1a1a1a; }
.notes { margin-top: 24px; color: #555; white-space: pre-wrap; }
</style>
</head>
<body>
<h1>{{.Kind}} {{.DocNumber}}</h1>
<p class="meta">
Datum: {{.Date}} &nbsp;&middot;&nbsp; {{.SecondName}}: {{.SecondDate}}<br>
{{.Customer.Name}}{{if .Customer.Street}}<br>{{.Customer.Street}}{{end}}{{if .Customer.PostalCode}}<br>{{.Customer.PostalCode}} {{with .Customer.City}}{{.}}{{end}}{{end}}{{if .Customer.PersonalNumber}}<br>Personnummer: {{.Customer.PersonalNumber}}{{end}}{{if .Customer.PropertyDesignation}}<br>Fastighetsbeteckning: {{.Customer.PropertyDesignation}}{{end}}
</p>
<table>
<thead><tr><th>Beskrivning</th><th class="num">Antal</th><th class="num">&Agrave;-pris</th><th class="num">Belopp</th></tr></thead>
<tbody>
{{range .Lines}}<tr><td>{{.Description}}</td><td class="num">{{.Quantity}}</td><td class="num">{{.UnitPrice}}</td><td class="num">{{.Amount}}</td></tr>
{{end}}</tbody>
</table>
<table class="totals">
{{range .Totals}}<tr{{if .Emphasis}} class="emphasis"{{end}}><td>{{.Label}}</td><td class="num">{{.Value}}</td></tr>
{{end}}</table>
{{if .Notes}}<p class="notes">{{.Notes}}</p>{{end}}
</body>
</html>`))

// RenderQuote produces the quote PDF.
func (r *Renderer) RenderQuote(ctx context.Context, quote *quotes.Quote, customer *customers.Customer) ([]byte, error) {
	lines := make([]documentLine, 0, len(quote.Lines))
	for _, l := range quote.Lines {
		lines = append(lines, documentLine{
			Description: l.Description,
			Quantity:    l.Quantity.String(),
			UnitPrice:   formatSEK(l.UnitPrice),
			Amount:      formatSEK(l.Amount),
		})
	}

	data := documentData{
		Kind:       "Offert",
		DocNumber:  quote.DocNumber,
		Date:       formatDate(quote.QuoteDate),
		SecondName: "Giltig till",
		SecondDate: formatDate(quote.ValidUntil),
		Customer:   customer,
		Lines:      lines,
		Totals: totalRows(quote.Subtotal, quote.DiscountAmount, quote.VATAmount,
			quote.TotalAmount, quote.DeductionRegime, quote.DeductionAmount(), quote.NetPayable),
	}
	if quote.Notes != nil {
		data.Notes = *quote.Notes
	}
	return r.render(ctx, data)
}

// RenderInvoice produces the invoice PDF.
func (r *Renderer) RenderInvoice(ctx context.Context, invoice *invoices.Invoice, customer *customers.Customer) ([]byte, error) {
	lines := make([]documentLine, 0, len(invoice.Lines))
	for _, l := range invoice.Lines {
		lines = append(lines, documentLine{
			Description: l.Description,
			Quantity:    l.Quantity.String(),
			UnitPrice:   formatSEK(l.UnitPrice),
			Amount:      formatSEK(l.Amount),
		})
	}

	data := documentData{
		Kind:       "Faktura",
		DocNumber:  invoice.DocNumber,
		Date:       formatDate(invoice.InvoiceDate),
		SecondName: "Förfallodatum",
		SecondDate: formatDate(invoice.DueDate),
		Customer:   customer,
		Lines:      lines,
		Totals: totalRows(invoice.Subtotal, invoice.DiscountAmount, invoice.VATAmount,
			invoice.TotalAmount, invoice.DeductionRegime, invoice.DeductionAmount(), invoice.NetPayable),
	}
	if invoice.Notes != nil {
		data.Notes = *invoice.Notes
	}
	return r.render(ctx, data)
}

func (r *Renderer) render(ctx context.Context, data documentData) ([]byte, error) {
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute document template: %w", err)
	}
	return r.pdf.RenderHTML(ctx, buf.String())
}

func totalRows(subtotal, discount, vat, total decimal.Decimal, regime pricing.Regime, deduction, net decimal.Decimal) []totalRow {
	rows := []totalRow{{Label: "Delsumma", Value: formatSEK(subtotal)}}
	if discount.IsPositive() {
		rows = append(rows, totalRow{Label: "Rabatt", Value: "-" + formatSEK(discount)})
	}
	rows = append(rows,
		totalRow{Label: "Moms", Value: formatSEK(vat)},
		totalRow{Label: "Totalt", Value: formatSEK(total)},
	)
	switch regime {
	case pricing.RegimeROT:
		rows = append(rows, totalRow{Label: "ROT-avdrag", Value: "-" + formatSEK(deduction)})
	case pricing.RegimeRUT:
		rows = append(rows, totalRow{Label: "RUT-avdrag", Value: "-" + formatSEK(deduction)})
	}
	rows = append(rows, totalRow{Label: "Att betala", Value: formatSEK(net), Emphasis: true})
	return rows
}
