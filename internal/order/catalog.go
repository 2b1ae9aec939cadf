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

// Package order holds the product catalogue, line item validation and the
// formatting rules used on the printed supplier order.
package order

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Buxxx23/order/internal/models"
)

// Field names a product attribute captured for a line item.
type Field string

const (
	FieldModel     Field = "Model"
	FieldColor     Field = "Color"
	FieldWallBuild Field = "Wall build"
	FieldDrain     Field = "Drain"
)

var (
	ErrUnknownGroup    = errors.New("unknown product group")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidPrice    = errors.New("net price must be a non-negative number")
	ErrInvalidOption   = errors.New("value not in preset list")
)

// Preset option lists offered by the line builder.
var (
	Colors = []string{
		"Natural/White", "Blue", "Red", "Green", "Yellow",
		"Gray", "Black", "Orange", "Other (free text)",
	}
	DrainPlugs = []string{"None", "1\" drain", "1½\" drain", "2\" drain", "Other (free text)"}
	WallBuilds = []string{"EPE", "PUR"}
)

// Default selections, matching the line builder's initial state.
const (
	DefaultColor     = "Blue"
	DefaultWallBuild = "EPE"
	DefaultDrain     = "None"
)

// Group is a product group and the attributes it asks for.
type Group struct {
	Name   string
	Fields []Field
}

// Has reports whether the group captures the given field.
func (g Group) Has(f Field) bool {
	for _, gf := range g.Fields {
		if gf == f {
			return true
		}
	}
	return false
}

// Groups lists the product groups in display order.
var Groups = []Group{
	{Name: "Bins", Fields: []Field{FieldModel, FieldColor, FieldWallBuild, FieldDrain}},
	{Name: "Lids", Fields: []Field{FieldModel, FieldColor, FieldWallBuild}},
	{Name: "Buggies", Fields: []Field{FieldModel, FieldColor}},
	{Name: "Pallets", Fields: []Field{FieldModel, FieldColor}},
}

// LookupGroup finds a group by name, case-insensitively.
func LookupGroup(name string) (Group, bool) {
	for _, g := range Groups {
		if strings.EqualFold(g.Name, strings.TrimSpace(name)) {
			return g, true
		}
	}
	return Group{}, false
}

// NewLineItem validates raw input and returns a line item containing only
// the attributes of its product group.
func NewLineItem(in models.LineItem) (models.LineItem, error) {
	g, ok := LookupGroup(in.Group)
	if !ok {
		return models.LineItem{}, fmt.Errorf("%w: %q", ErrUnknownGroup, in.Group)
	}
	if in.Quantity < 1 {
		return models.LineItem{}, ErrInvalidQuantity
	}
	if !finite(in.NetPrice) || in.NetPrice < 0 || !finite(float64(in.Quantity)*in.NetPrice) {
		return models.LineItem{}, ErrInvalidPrice
	}

	out := models.LineItem{
		Group:    g.Name,
		Quantity: in.Quantity,
		Note:     strings.TrimSpace(in.Note),
		NetPrice: in.NetPrice,
	}

	if g.Has(FieldModel) {
		out.Model = strings.TrimSpace(in.Model)
	}
	if g.Has(FieldColor) {
		v, err := pick(in.Color, DefaultColor, Colors)
		if err != nil {
			return models.LineItem{}, fmt.Errorf("color: %w", err)
		}
		out.Color = v
	}
	if g.Has(FieldWallBuild) {
		v, err := pick(in.WallBuild, DefaultWallBuild, WallBuilds)
		if err != nil {
			return models.LineItem{}, fmt.Errorf("wall build: %w", err)
		}
		out.WallBuild = v
	}
	if g.Has(FieldDrain) {
		v, err := pick(in.Drain, DefaultDrain, DrainPlugs)
		if err != nil {
			return models.LineItem{}, fmt.Errorf("drain: %w", err)
		}
		out.Drain = v
	}

	return out, nil
}

// pick returns the preset matching value, or fallback when value is empty.
func pick(value, fallback string, presets []string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	for _, p := range presets {
		if p == value {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOption, value)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
