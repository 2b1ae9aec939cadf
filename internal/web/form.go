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

package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Buxxx23/order/internal/drafts"
	"github.com/Buxxx23/order/internal/models"
	"github.com/Buxxx23/order/internal/order"
)

const dateLayout = "2006-01-02"

func timeDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// applyForm copies the header and Graph fields of a posted form into the
// draft. Forms without the header fields leave the draft untouched.
func applyForm(d *drafts.Draft, r *http.Request) error {
	f := r.PostForm
	if f.Has("order_no") {
		meta := d.Meta
		meta.Company = strings.TrimSpace(f.Get("company"))
		meta.ContactPerson = strings.TrimSpace(f.Get("contact_person"))
		meta.Phone = strings.TrimSpace(f.Get("phone"))
		meta.Email = strings.TrimSpace(f.Get("email"))
		meta.OrderNo = strings.TrimSpace(f.Get("order_no"))
		meta.YourOrderRef = strings.TrimSpace(f.Get("your_order_ref"))
		meta.ShipTo = normalizeText(f.Get("ship_to"))
		meta.BillTo = normalizeText(f.Get("bill_to"))
		meta.FooterLeft = normalizeText(f.Get("footer_left"))
		meta.FooterRightExtra = normalizeText(f.Get("footer_right_extra"))

		if raw := strings.TrimSpace(f.Get("date")); raw != "" {
			date, err := time.Parse(dateLayout, raw)
			if err != nil {
				return fmt.Errorf("invalid date %q", raw)
			}
			meta.Date = date
		}

		rate, err := parseNumber(f.Get("vat_rate"), 0)
		if err != nil {
			return fmt.Errorf("invalid VAT rate: %w", err)
		}
		meta.VATID, meta.VATRate, err = order.ResolveVAT(f.Get("vat_id"), rate)
		if err != nil {
			return err
		}
		d.Meta = meta
	}

	if f.Has("tenant_id") {
		d.Graph = drafts.GraphPrefs{
			TenantID: strings.TrimSpace(f.Get("tenant_id")),
			ClientID: strings.TrimSpace(f.Get("client_id")),
			UserUPN:  strings.TrimSpace(f.Get("user_upn")),
			Folder:   strings.TrimSpace(f.Get("folder")),
			EmailTo:  strings.TrimSpace(f.Get("email_to")),
			Upload:   f.Get("upload") != "",
			Email:    f.Get("email_send") != "",
		}
	}
	return nil
}

// parseLine reads the line builder fields.
func parseLine(r *http.Request) (models.LineItem, error) {
	f := r.PostForm
	qty, err := strconv.Atoi(strings.TrimSpace(f.Get("quantity")))
	if err != nil {
		return models.LineItem{}, fmt.Errorf("invalid quantity %q", f.Get("quantity"))
	}
	price, err := parseNumber(f.Get("net_price"), 0)
	if err != nil {
		return models.LineItem{}, fmt.Errorf("invalid net price: %w", err)
	}
	return order.NewLineItem(models.LineItem{
		Group:     f.Get("group"),
		Quantity:  qty,
		Model:     f.Get("model"),
		Color:     f.Get("color"),
		WallBuild: f.Get("wall_build"),
		Drain:     f.Get("drain"),
		Note:      f.Get("note"),
		NetPrice:  price,
	})
}

// parseNumber accepts both "12.5" and "12,5".
func parseNumber(raw string, fallback float64) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
}

func normalizeText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
}

// settings combines the draft's Graph preferences with the posted secret,
// falling back to the configured one.
func (h *Handler) settings(d *drafts.Draft, r *http.Request) models.GraphSettings {
	secret := strings.TrimSpace(r.PostForm.Get("client_secret"))
	if secret == "" {
		secret = h.defaults.Graph.Credentials.ClientSecret
	}
	return d.Graph.Settings(secret)
}
