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

package pdf

import (
	"strings"

	"github.com/go-pdf/fpdf"
)

const fontFamily = "Helvetica"

// cell is one table cell: an optional bold title line followed by text.
type cell struct {
	title string
	text  string
}

func textCells(texts ...string) []cell {
	out := make([]cell, len(texts))
	for i, t := range texts {
		out[i] = cell{text: t}
	}
	return out
}

// rowStyle describes how a table row is drawn.
type rowStyle struct {
	size   float64  // font size in points
	bold   bool     // whole row bold
	border bool     // draw cell borders
	fill   bool     // shade cell background
	align  []string // per-column alignment, default "L"
	indent float64  // offset from the left margin
}

// document wraps fpdf with row-based layout on top of the core font.
type document struct {
	pdf       *fpdf.Fpdf
	tr        func(string) string
	onNewPage func()
}

func newDocument(compress bool) *document {
	p := fpdf.New("P", "mm", "A4", "")
	p.SetCompression(compress)
	p.SetMargins(marginLeft, marginTop, marginRight)
	p.SetAutoPageBreak(false, marginBottom)
	p.SetCreator("order desk", true)
	p.SetDrawColor(0, 0, 0)
	p.SetFillColor(245, 245, 245)
	p.SetLineWidth(0.25 * ptToMM)
	p.AddPage()
	p.SetFont(fontFamily, "", 8)

	return &document{
		pdf: p,
		tr:  p.UnicodeTranslatorFromDescriptor(""),
	}
}

func lineHeight(size float64) float64 {
	return (size + 1.5) * ptToMM
}

// encode maps text onto cp1252 positions, one rune per code byte, so
// SplitText measures it with the core font widths. Runes cp1252 lacks
// become '?'.
func (d *document) encode(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t':
			return ' '
		case r < 0x80:
			return r
		}
		b := d.tr(string(r))
		if len(b) != 1 || b[0] == '.' {
			return '?'
		}
		return rune(b[0])
	}, s)
}

// codeBytes turns an encoded line into the bytes written to the page.
func codeBytes(s string) string {
	b := make([]byte, 0, len(s))
	for _, r := range s {
		b = append(b, byte(r))
	}
	return string(b)
}

// wrap splits text into lines that fit width with the current font.
func (d *document) wrap(text string, width float64) []string {
	text = d.encode(strings.ReplaceAll(text, "\r\n", "\n"))
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		if strings.TrimSpace(para) == "" {
			lines = append(lines, "")
			continue
		}
		lines = append(lines, d.pdf.SplitText(para, width)...)
	}
	return lines
}

// cellLines lays out one cell and reports which lines are titles.
func (d *document) cellLines(c cell, width float64, style rowStyle) (lines []string, bold []bool) {
	if c.title != "" {
		d.pdf.SetFont(fontFamily, "B", style.size)
		for _, l := range d.wrap(c.title, width) {
			lines = append(lines, l)
			bold = append(bold, true)
		}
	}
	if c.text != "" || c.title == "" {
		d.setFont(style)
		for _, l := range d.wrap(c.text, width) {
			lines = append(lines, l)
			bold = append(bold, style.bold)
		}
	}
	return lines, bold
}

func (d *document) setFont(style rowStyle) {
	if style.bold {
		d.pdf.SetFont(fontFamily, "B", style.size)
		return
	}
	d.pdf.SetFont(fontFamily, "", style.size)
}

// row draws one row of cells, starting a new page when it would cross the
// bottom margin.
func (d *document) row(style rowStyle, widths []float64, cells []cell) {
	lh := lineHeight(style.size)

	laid := make([][]string, len(cells))
	bolds := make([][]bool, len(cells))
	maxLines := 1
	for i, c := range cells {
		laid[i], bolds[i] = d.cellLines(c, widths[i], style)
		if len(laid[i]) > maxLines {
			maxLines = len(laid[i])
		}
	}
	height := float64(maxLines)*lh + 2*cellPad

	if d.pdf.GetY()+height > pageHeight-marginBottom {
		d.pdf.AddPage()
		if hook := d.onNewPage; hook != nil {
			d.onNewPage = nil
			hook()
			d.onNewPage = hook
		}
	}

	y := d.pdf.GetY()
	x := marginLeft + style.indent
	for i := range cells {
		w := widths[i]
		switch {
		case style.border && style.fill:
			d.pdf.Rect(x, y, w, height, "FD")
		case style.border:
			d.pdf.Rect(x, y, w, height, "D")
		case style.fill:
			d.pdf.Rect(x, y, w, height, "F")
		}

		align := "L"
		if i < len(style.align) {
			align = style.align[i]
		}
		for j, line := range laid[i] {
			if bolds[i][j] {
				d.pdf.SetFont(fontFamily, "B", style.size)
			} else {
				d.pdf.SetFont(fontFamily, "", style.size)
			}
			d.pdf.SetXY(x, y+cellPad+float64(j)*lh)
			d.pdf.CellFormat(w, lh, codeBytes(line), "", 0, align, false, 0, "")
		}
		x += w
	}

	d.pdf.SetXY(marginLeft, y+height)
}

// gap advances the cursor vertically.
func (d *document) gap(h float64) {
	d.pdf.SetXY(marginLeft, d.pdf.GetY()+h)
}
