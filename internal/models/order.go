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

package models

import "time"

// OrderMeta holds the header fields of a supplier order. VATRate is a
// percentage (21 means 21%).
type OrderMeta struct {
	Company          string    `json:"company" yaml:"company"`
	ContactPerson    string    `json:"contact_person" yaml:"contact_person"`
	Phone            string    `json:"phone" yaml:"phone"`
	Email            string    `json:"email" yaml:"email"`
	OrderNo          string    `json:"order_no" yaml:"order_no"`
	YourOrderRef     string    `json:"your_order_ref,omitempty" yaml:"your_order_ref"`
	Date             time.Time `json:"date" yaml:"date"`
	ShipTo           string    `json:"ship_to" yaml:"ship_to"`
	BillTo           string    `json:"bill_to" yaml:"bill_to"`
	VATID            string    `json:"vat_id" yaml:"vat_id"`
	VATRate          float64   `json:"vat_rate" yaml:"vat_rate"`
	FooterLeft       string    `json:"footer_left" yaml:"footer_left"`
	FooterRightExtra string    `json:"footer_right_extra" yaml:"footer_right_extra"`
}

// LineItem is one position of an order. Fields that do not apply to the
// product group stay empty.
type LineItem struct {
	Group     string  `json:"group" yaml:"group"`
	Quantity  int     `json:"quantity" yaml:"quantity"`
	Model     string  `json:"model,omitempty" yaml:"model"`
	Color     string  `json:"color,omitempty" yaml:"color"`
	WallBuild string  `json:"wall_build,omitempty" yaml:"wall_build"`
	Drain     string  `json:"drain,omitempty" yaml:"drain"`
	Note      string  `json:"note,omitempty" yaml:"note"`
	NetPrice  float64 `json:"net_price" yaml:"net_price"`
}

// Total is the net amount of the line.
func (l LineItem) Total() float64 {
	return l.NetPrice * float64(l.Quantity)
}

// Order is the structured document entered by the user. It exists only
// for the duration of one submission.
type Order struct {
	Meta  OrderMeta  `json:"meta" yaml:"meta"`
	Lines []LineItem `json:"lines" yaml:"lines"`
}

// NetTotal sums the line totals.
func (o Order) NetTotal() float64 {
	var sum float64
	for _, l := range o.Lines {
		sum += l.Total()
	}
	return sum
}

// VATAmount is the VAT due on the net total.
func (o Order) VATAmount() float64 {
	return o.NetTotal() * o.Meta.VATRate / 100
}

// GrossTotal is net plus VAT.
func (o Order) GrossTotal() float64 {
	return o.NetTotal() + o.VATAmount()
}
