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
	"bytes"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/Buxxx23/order/internal/models"
)

func sampleOrder(lines int) models.Order {
	o := models.Order{
		Meta: models.OrderMeta{
			Company:          "Rotogal GmbH",
			ContactPerson:    "Maurice Vennegerts",
			OrderNo:          "order123",
			YourOrderRef:     "REF-9",
			Date:             time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
			ShipTo:           "Lager Wilsum\nDorfstr. 77",
			BillTo:           "Rotogal GmbH\nDorfstr. 77\n49848 Wilsum\nGermany",
			VATID:            "ESN0300033H",
			VATRate:          21,
			FooterLeft:       "Rotogal GmbH\nDorfstr. 77",
			FooterRightExtra: "Tax-No: 55/208/12604",
		},
	}
	for i := 0; i < lines; i++ {
		o.Lines = append(o.Lines, models.LineItem{
			Group:     "Bins",
			Quantity:  2,
			Model:     fmt.Sprintf("BI-%d", 565+i),
			Color:     "Blue",
			WallBuild: "EPE",
			Drain:     "1½\" drain",
			Note:      "Größe prüfen – urgent",
			NetPrice:  1250,
		})
	}
	return o
}

var testLetterhead = Letterhead{
	Supplier: "ROTOGAL, S.L.U.\nPOL. IND. ESPIÑERIA, PARC.36B\n15930 Boiro, A Coruña\nSpain",
	Notice:   "We kindly ask for a written confirmation of order.",
}

// TestRender_Document verifies a PDF is produced with the order text in it.
func TestRender_Document(t *testing.T) {
	r := NewRenderer(testLetterhead, WithoutCompression())

	out, err := r.Render(sampleOrder(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatalf("output does not start with a PDF header: %q", out[:min(len(out), 16)])
	}

	for _, want := range []string{
		"Our Order No.: order123",
		"Your order ref.: REF-9",
		"VAT ID: ESN0300033H",
		"Date: 01.07.2026",
		"Mod. BI-566",
		"2.500,00",
		"Gross price:",
		"VAT \\(21%\\):",
		"Tax-No: 55/208/12604",
	} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("rendered PDF missing %q", want)
		}
	}
}

// TestRender_Compressed verifies the default renderer output is a PDF.
func TestRender_Compressed(t *testing.T) {
	out, err := NewRenderer(testLetterhead).Render(sampleOrder(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Error("output is not a PDF")
	}
}

// TestRender_ManyLines verifies long orders still render.
func TestRender_ManyLines(t *testing.T) {
	if _, err := NewRenderer(testLetterhead).Render(sampleOrder(60)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestRender_EmptyOrder verifies an order without lines renders.
func TestRender_EmptyOrder(t *testing.T) {
	if _, err := NewRenderer(Letterhead{}).Render(models.Order{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBodyFontSize(t *testing.T) {
	tests := []struct {
		rows int
		want float64
	}{
		{0, 8}, {1, 8}, {18, 8}, {19, 7}, {24, 7}, {25, 6}, {80, 6},
	}
	for _, tt := range tests {
		if got := BodyFontSize(tt.rows); got != tt.want {
			t.Errorf("BodyFontSize(%d) = %v, want %v", tt.rows, got, tt.want)
		}
	}
}

func TestScaleWidths(t *testing.T) {
	got := ScaleWidths(lineColumns, contentWidth)

	var sum float64
	for _, w := range got {
		sum += w
	}
	if math.Abs(sum-contentWidth) > 1e-9 {
		t.Errorf("scaled widths sum to %v, want %v", sum, contentWidth)
	}
	if math.Abs(got[2]-85*contentWidth/220) > 1e-9 {
		t.Errorf("article column = %v", got[2])
	}

	zero := ScaleWidths([]float64{0, 0}, 100)
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("zero widths should stay zero, got %v", zero)
	}
}

// TestEncode verifies text reaches the page in code page 1252, including
// the characters it has above Latin-1.
func TestEncode(t *testing.T) {
	d := newDocument(false)

	tests := []struct {
		in   string
		want string
	}{
		{"order123", "order123"},
		{"Größe\tprüfen", "Gr\xf6\xdfe pr\xfcfen"},
		{"5 € – „Qualität“", "5 \x80 \x96 \x84Qualit\xe4t\x93"},
		{"中文", "??"},
	}
	for _, tt := range tests {
		if got := codeBytes(d.encode(tt.in)); got != tt.want {
			t.Errorf("encode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestRender_Cp1252Text verifies an en dash in a note is printed rather
// than replaced.
func TestRender_Cp1252Text(t *testing.T) {
	o := sampleOrder(1)
	o.Lines[0].Note = "A – B"
	out, err := NewRenderer(testLetterhead, WithoutCompression()).Render(o)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Contains(out, []byte("(A \x96 B)")) {
		t.Error("rendered PDF missing the note with a cp1252 en dash")
	}
}
