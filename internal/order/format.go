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

package order

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/Buxxx23/order/internal/models"
)

const defaultFilename = "supplier_order"

var (
	unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9\-_\s.]`)
	whitespaceRun       = regexp.MustCompile(`\s+`)
)

// FormatEUR renders an amount with two decimals, "." as thousands separator
// and "," as decimal separator: 1234.5 -> "1.234,50".
func FormatEUR(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	s := strconv.FormatFloat(math.Abs(v), 'f', 2, 64)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if v < 0 && s != "0.00" {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}

// FormatPercent renders a VAT percentage without trailing zeros: 21 -> "21%",
// 10.5 -> "10.5%".
func FormatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64) + "%"
}

// Clean trims a value and maps placeholder strings to empty.
func Clean(v string) string {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "nan", "none", "null":
		return ""
	}
	return v
}

// SanitizeFilename turns an order number into a safe PDF filename.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultFilename
	}
	safe := unsafeFilenameChars.ReplaceAllString(name, "")
	safe = whitespaceRun.ReplaceAllString(safe, "_")
	if !strings.HasSuffix(strings.ToLower(safe), ".pdf") {
		safe += ".pdf"
	}
	return safe
}

// Article builds the article column text for a line item, e.g.
// "Bins, Mod. BI-565, (EPE), Blue, drain: 2" drain".
func Article(l models.LineItem) string {
	group := Clean(l.Group)
	model := Clean(l.Model)
	wall := Clean(l.WallBuild)
	color := Clean(l.Color)
	drain := Clean(l.Drain)

	var parts []string
	if group != "" {
		parts = append(parts, group)
	}
	if model != "" {
		parts = append(parts, "Mod. "+model)
	}
	if wall != "" {
		parts = append(parts, "("+wall+")")
	}
	if color != "" {
		parts = append(parts, color)
	}
	if group == "Bins" && drain != "" {
		parts = append(parts, "drain: "+drain)
	}
	return strings.Join(parts, ", ")
}

// VATOption is a selectable VAT identity.
type VATOption struct {
	ID           string
	Label        string
	DefaultRate  float64
	RateEditable bool
}

// MaxVATRate bounds the editable rate.
const MaxVATRate = 30.0

// VATOptions lists the VAT identities the company orders under.
var VATOptions = []VATOption{
	{ID: "DE294750940", Label: "DE294750940 (Germany)", DefaultRate: 0},
	{ID: "ESN0300033H", Label: "ESN0300033H (Spain)", DefaultRate: 21, RateEditable: true},
}

// ResolveVAT returns the VAT id and effective rate for a selection. The
// rate is only honoured for options that allow editing it.
func ResolveVAT(id string, rate float64) (string, float64, error) {
	for _, opt := range VATOptions {
		if opt.ID != strings.TrimSpace(id) {
			continue
		}
		if !opt.RateEditable {
			return opt.ID, opt.DefaultRate, nil
		}
		if rate < 0 || rate > MaxVATRate || math.IsNaN(rate) {
			return "", 0, fmt.Errorf("vat rate %v out of range 0-%v", rate, MaxVATRate)
		}
		return opt.ID, rate, nil
	}
	return "", 0, fmt.Errorf("unknown vat id %q", id)
}
