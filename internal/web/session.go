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
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/Buxxx23/order/internal/drafts"
	"github.com/Buxxx23/order/internal/order"
)

// sessionCookie carries the draft key.
const sessionCookie = "order_session"

// sessionID returns the caller's session ID, issuing a new cookie when the
// request carries none or an invalid one.
func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// loadDraft returns the session's draft, or a fresh one built from the
// configured defaults.
func (h *Handler) loadDraft(ctx context.Context, sessionID string) (*drafts.Draft, error) {
	d, err := h.drafts.Load(ctx, sessionID)
	if errors.Is(err, drafts.ErrNotFound) {
		return h.newDraft(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	return d, nil
}

func (h *Handler) newDraft() *drafts.Draft {
	meta := h.defaults.Meta
	if meta.Date.IsZero() {
		y, m, d := h.now().Date()
		meta.Date = timeDate(y, m, d)
	}
	if meta.VATID == "" {
		opt := order.VATOptions[0]
		meta.VATID, meta.VATRate = opt.ID, opt.DefaultRate
	}
	return &drafts.Draft{
		Meta:  meta,
		Graph: drafts.PrefsFrom(h.defaults.Graph, h.defaults.AutoUpload, h.defaults.AutoEmail),
	}
}
