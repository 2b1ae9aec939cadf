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

// Package drafts keeps the order being edited in a browser session, either
// in Redis or in process memory.
package drafts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Buxxx23/order/internal/models"
)

// ErrNotFound is returned by Load when the session has no draft.
var ErrNotFound = errors.New("draft not found")

// DefaultTTL is how long an idle draft is kept.
const DefaultTTL = 12 * time.Hour

// GraphPrefs are the OneDrive/mail settings remembered with a draft. The
// client secret is never part of it.
type GraphPrefs struct {
	TenantID string `json:"tenant_id,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	UserUPN  string `json:"user_upn,omitempty"`
	Folder   string `json:"folder,omitempty"`
	EmailTo  string `json:"email_to,omitempty"`
	Upload   bool   `json:"upload"`
	Email    bool   `json:"email"`
}

// PrefsFrom copies the non-secret parts of settings.
func PrefsFrom(g models.GraphSettings, upload, email bool) GraphPrefs {
	return GraphPrefs{
		TenantID: g.Credentials.TenantID,
		ClientID: g.Credentials.ClientID,
		UserUPN:  g.UserUPN,
		Folder:   g.Folder,
		EmailTo:  strings.Join(g.Recipients, ", "),
		Upload:   upload,
		Email:    email,
	}
}

// Settings rebuilds Graph settings from the stored preferences and a
// secret supplied by the caller.
func (p GraphPrefs) Settings(secret string) models.GraphSettings {
	return models.GraphSettings{
		Credentials: models.Credentials{
			TenantID:     p.TenantID,
			ClientID:     p.ClientID,
			ClientSecret: secret,
		},
		UserUPN:    p.UserUPN,
		Folder:     p.Folder,
		Recipients: models.ParseRecipients(p.EmailTo),
	}
}

// Draft is the editable state of one order.
type Draft struct {
	Meta      models.OrderMeta  `json:"meta"`
	Graph     GraphPrefs        `json:"graph"`
	Lines     []models.LineItem `json:"lines"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Order returns the draft as an order document.
func (d *Draft) Order() models.Order {
	lines := make([]models.LineItem, len(d.Lines))
	copy(lines, d.Lines)
	return models.Order{Meta: d.Meta, Lines: lines}
}

// AddLine appends a validated line item.
func (d *Draft) AddLine(l models.LineItem) {
	d.Lines = append(d.Lines, l)
}

// ClearLines removes all line items and keeps the header.
func (d *Draft) ClearLines() {
	d.Lines = nil
}

// Store persists drafts by session ID.
type Store interface {
	Load(ctx context.Context, sessionID string) (*Draft, error)
	Save(ctx context.Context, sessionID string, d *Draft) error
}
