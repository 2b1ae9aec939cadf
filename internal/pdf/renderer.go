// Copyright (c) 2026 The Buxxx23 order authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pdf renders a supplier order onto a single A4 page.
package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/Buxxx23/order/internal/models"
	"github.com/Buxxx23/order/internal/order"
)

// Page geometry in millimetres.
const (
	pageHeight   = 297.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 12.0
	marginBottom = 12.0
	contentWidth = 210.0 - marginLeft - marginRight

	ptToMM   = 25.4 / 72
	cellPad  = 0.7
	sectionY = 1.5
)

// lineColumns are the base widths of the position table, scaled to the
// content width.
var lineColumns = []float64{10, 18, 85, 35, 12, 30, 30}

// Letterhead is the fixed text printed on every order.
type Letterhead struct {
	// Supplier is the address block of the party being ordered from. The
	// first line is printed in bold.
	Supplier string
	// Notice is the small print under the totals.
	Notice string
}

// Renderer turns orders into PDF bytes.
type Renderer struct {
	letterhead Letterhead
	compress   bool
}

// Option adjusts a Renderer.
type Option func(*Renderer)

// WithoutCompression writes plain content streams. Used by tests that look
// for text in the output.
func WithoutCompression() Option {
	return func(r *Renderer) { r.compress = false }
}

// NewRenderer creates a renderer with the given letterhead.
func NewRenderer(lh Letterhead, opts ...Option) *Renderer {
	r := &Renderer{letterhead: lh, compress: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BodyFontSize picks the table font size so that long orders still fit on
// one page.
func BodyFontSize(rows int) float64 {
	if rows < 1 {
		rows = 1
	}
	switch {
	case rows <= 18:
		return 8
	case rows <= 24:
		return 7
	default:
		return 6
	}
}

// ScaleWidths scales widths proportionally so they sum to total.
func ScaleWidths(widths []float64, total float64) []float64 {
	var sum float64
	for _, w := range widths {
		sum += w
	}
	out := make([]float64, len(widths))
	copy(out, widths)
	if sum <= 0 {
		return out
	}
	f := total / sum
	for i := range out {
		out[i] *= f
	}
	return out
}

// Render lays out the order and returns the PDF document.
func (r *Renderer) Render(o models.Order) ([]byte, error) {
	d := newDocument(r.compress)
	meta := o.Meta

	body := BodyFontSize(len(o.Lines))
	small := 6.0
	if body >= 7 {
		small = 7
	}

	d.pdf.SetTitle(order.Subject(meta), true)
	d.pdf.SetAuthor(meta.Company, true)

	// Supplier block and order header.
	supplierTitle, supplierRest, _ := strings.Cut(strings.TrimSpace(r.letterhead.Supplier), "\n")
	header := []string{"Our Order No.: " + meta.OrderNo}
	if ref := order.Clean(meta.YourOrderRef); ref != "" {
		header = append(header, "Your order ref.: "+ref)
	}
	header = append(header, "VAT ID: "+meta.VATID)

	d.row(rowStyle{size: 8}, []float64{100, 70}, []cell{
		{title: supplierTitle, text: supplierRest},
		{title: "Order", text: strings.Join(header, "\n")},
	})
	d.gap(sectionY)

	// Addresses, date and contact.
	date := ""
	if !meta.Date.IsZero() {
		date = meta.Date.Format("02.01.2006")
	}
	d.row(rowStyle{size: 8, border: true, fill: true}, []float64{65, 65, 40}, []cell{
		{title: "Shipping address:", text: order.Clean(meta.ShipTo)},
		{title: "Billing address:", text: order.Clean(meta.BillTo)},
		{text: fmt.Sprintf("Page: 1\nDate: %s\nContact person: %s", date, meta.ContactPerson)},
	})
	d.gap(sectionY * 2)

	// Positions.
	widths := ScaleWidths(lineColumns, contentWidth)
	headerStyle := rowStyle{size: body, border: true, fill: true, bold: true, align: []string{"C", "C", "C", "C", "C", "C", "C"}}
	headerCells := textCells("Pos.", "Quantity", "Article", "Note", "VAT %", "Net price (EUR)", "Total (EUR)")
	d.onNewPage = func() { d.row(headerStyle, widths, headerCells) }
	d.row(headerStyle, widths, headerCells)

	vat := order.FormatPercent(meta.VATRate)
	lineStyle := rowStyle{size: body, border: true, align: []string{"L", "R", "L", "L", "L", "R", "R"}}
	for i, l := range o.Lines {
		d.row(lineStyle, widths, textCells(
			fmt.Sprint(i+1),
			fmt.Sprint(l.Quantity),
			order.Article(l),
			order.Clean(l.Note),
			vat,
			order.FormatEUR(l.NetPrice),
			order.FormatEUR(l.Total()),
		))
	}
	d.onNewPage = nil
	d.gap(sectionY * 2)

	// Totals, right aligned under the table.
	totalsStyle := rowStyle{size: body, align: []string{"R", "R", "R"}, indent: contentWidth - 120}
	totalsWidths := []float64{60, 30, 30}
	d.row(totalsStyle, totalsWidths, textCells("Net price:", order.FormatEUR(o.NetTotal()), "EUR"))
	d.row(totalsStyle, totalsWidths, textCells(fmt.Sprintf("VAT (%s):", vat), order.FormatEUR(o.VATAmount()), "EUR"))
	d.row(totalsStyle, totalsWidths, textCells("Gross price:", order.FormatEUR(o.GrossTotal()), "EUR"))
	d.gap(sectionY * 2)

	if notice := strings.TrimSpace(r.letterhead.Notice); notice != "" {
		d.row(rowStyle{size: small}, []float64{contentWidth}, textCells(notice))
		d.gap(sectionY * 2)
	}

	// Footer.
	footerRight := "VAT ID: " + meta.VATID
	if extra := strings.TrimSpace(meta.FooterRightExtra); extra != "" {
		footerRight += "\n" + extra
	}
	d.row(rowStyle{size: small}, []float64{90, 90}, textCells(meta.FooterLeft, footerRight))

	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
