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
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Buxxx23/order/internal/dispatch"
	"github.com/Buxxx23/order/internal/drafts"
	"github.com/Buxxx23/order/internal/history"
	"github.com/Buxxx23/order/internal/models"
	"github.com/Buxxx23/order/internal/order"
)

// maxFormBytes bounds a posted form.
const maxFormBytes = 1 << 20

const noLinesMessage = "No positions added yet."

type indexView struct {
	Draft            *drafts.Draft
	Order            models.Order
	Groups           []order.Group
	Group            order.Group
	Fields           map[string]bool
	Colors           []string
	DefaultColor     string
	WallBuilds       []string
	DrainPlugs       []string
	VATOptions       []order.VATOption
	SubmissionID     string
	Filename         string
	SecretConfigured bool
	Error            string
}

func (h *Handler) indexView(d *drafts.Draft, groupName, errMsg string) indexView {
	g, ok := order.LookupGroup(groupName)
	if !ok {
		g = order.Groups[0]
	}
	fields := make(map[string]bool, len(g.Fields))
	for _, f := range g.Fields {
		fields[string(f)] = true
	}
	return indexView{
		Draft:            d,
		Order:            d.Order(),
		Groups:           order.Groups,
		Group:            g,
		Fields:           fields,
		Colors:           order.Colors,
		DefaultColor:     order.DefaultColor,
		WallBuilds:       order.WallBuilds,
		DrainPlugs:       order.DrainPlugs,
		VATOptions:       order.VATOptions,
		SubmissionID:     uuid.New().String(),
		Filename:         order.SanitizeFilename(d.Meta.OrderNo),
		SecretConfigured: h.defaults.Graph.Credentials.ClientSecret != "",
		Error:            errMsg,
	}
}

// ServeIndex renders the order page.
func (h *Handler) ServeIndex(w http.ResponseWriter, r *http.Request) {
	id := h.sessionID(w, r)
	d, err := h.loadDraft(r.Context(), id)
	if err != nil {
		h.internalError(w, "load draft", err)
		return
	}
	h.pages.render(w, http.StatusOK, "index", h.indexView(d, r.URL.Query().Get("group"), ""))
}

// ServeAddLine validates the line builder and appends the position.
func (h *Handler) ServeAddLine(w http.ResponseWriter, r *http.Request) {
	d, id, ok := h.editDraft(w, r)
	if !ok {
		return
	}
	group := r.PostForm.Get("group")

	line, err := parseLine(r)
	if err != nil {
		if !h.saveDraft(w, r, id, d) {
			return
		}
		h.pages.render(w, http.StatusBadRequest, "index", h.indexView(d, group, err.Error()))
		return
	}
	d.AddLine(line)
	if !h.saveDraft(w, r, id, d) {
		return
	}

	slog.Info("position added", "session", id, "group", line.Group, "quantity", line.Quantity)
	http.Redirect(w, r, "/?group="+url.QueryEscape(line.Group), http.StatusSeeOther)
}

// ServeClearLines removes all positions.
func (h *Handler) ServeClearLines(w http.ResponseWriter, r *http.Request) {
	d, id, ok := h.editDraft(w, r)
	if !ok {
		return
	}
	d.ClearLines()
	if !h.saveDraft(w, r, id, d) {
		return
	}
	http.Redirect(w, r, "/?group="+url.QueryEscape(r.PostForm.Get("group")), http.StatusSeeOther)
}

// ServePDF renders the draft and returns it as a download.
func (h *Handler) ServePDF(w http.ResponseWriter, r *http.Request) {
	d, id, ok := h.editDraft(w, r)
	if !ok || !h.saveDraft(w, r, id, d) {
		return
	}
	if len(d.Lines) == 0 {
		h.pages.render(w, http.StatusBadRequest, "index", h.indexView(d, r.PostForm.Get("group"), noLinesMessage))
		return
	}

	pdf, err := h.renderer.Render(d.Order())
	if err != nil {
		h.internalError(w, "render pdf", err)
		return
	}

	filename := order.SanitizeFilename(d.Meta.OrderNo)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

type stepView struct {
	Name    string
	Status  dispatch.Status
	Message string
	Link    string
}

type resultView struct {
	OrderNo   string
	Filename  string
	Warning   string
	AuthError string
	Steps     []stepView
}

// ServeExport renders the draft and runs the requested Graph steps.
func (h *Handler) ServeExport(w http.ResponseWriter, r *http.Request) {
	d, id, ok := h.editDraft(w, r)
	if !ok || !h.saveDraft(w, r, id, d) {
		return
	}
	if len(d.Lines) == 0 {
		h.pages.render(w, http.StatusBadRequest, "index", h.indexView(d, r.PostForm.Get("group"), noLinesMessage))
		return
	}

	submissionID := strings.TrimSpace(r.PostForm.Get("submission_id"))
	if submissionID == "" {
		submissionID = uuid.New().String()
	}
	claimed, err := h.guard.Claim(r.Context(), submissionID)
	if err != nil {
		slog.Warn("submission guard unavailable, dispatching anyway", "submission_id", submissionID, "error", err)
		claimed = true
	}
	if !claimed {
		slog.Info("duplicate submission refused", "submission_id", submissionID, "order_no", d.Meta.OrderNo)
		h.pages.message(w, http.StatusConflict, "Already exported",
			"This form was already submitted. Reload the order page to export again.")
		return
	}

	res, err := h.dispatcher.Run(r.Context(), dispatch.Request{
		Order:        d.Order(),
		Graph:        h.settings(d, r),
		Upload:       d.Graph.Upload,
		Email:        d.Graph.Email,
		SubmissionID: submissionID,
	})
	if err != nil || res.Failed() {
		if relErr := h.guard.Release(r.Context(), submissionID); relErr != nil {
			slog.Warn("release submission failed", "submission_id", submissionID, "error", relErr)
		}
	}
	if err != nil {
		h.internalError(w, "dispatch order", err)
		return
	}

	h.pages.render(w, http.StatusOK, "result", newResultView(d.Meta.OrderNo, res))
}

func newResultView(orderNo string, res *dispatch.Result) resultView {
	v := resultView{
		OrderNo:  orderNo,
		Filename: res.Filename,
		Warning:  res.Warning,
	}
	if res.AuthErr != nil {
		v.AuthError = res.AuthErr.Error()
	}

	upload := stepView{Name: "OneDrive", Status: res.Upload.Status}
	switch res.Upload.Status {
	case dispatch.StatusSucceeded:
		upload.Message = "Uploaded to OneDrive."
		if res.Item != nil {
			upload.Link = res.Item.WebURL
		}
	case dispatch.StatusFailed:
		upload.Message = stepError(res.Upload.Err)
	default:
		upload.Message = "not requested"
	}

	mail := stepView{Name: "Email", Status: res.Mail.Status}
	switch res.Mail.Status {
	case dispatch.StatusSucceeded:
		mail.Message = "Email sent via Microsoft Graph to " + res.Mail.Detail + "."
	case dispatch.StatusFailed:
		mail.Message = stepError(res.Mail.Err)
	default:
		mail.Message = "not requested"
		if res.Mail.Detail != "" {
			mail.Message = res.Mail.Detail
		}
	}

	v.Steps = []stepView{upload, mail}
	return v
}

// stepError avoids repeating the auth failure already shown above the steps.
func stepError(err error) string {
	if dispatch.Kind(err) == "auth" {
		return "not attempted"
	}
	return err.Error()
}

type historyView struct {
	Entries []history.Entry
}

// ServeHistory lists recent dispatches.
func (h *Handler) ServeHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.pages.message(w, http.StatusNotFound, "History", "Dispatch history is not configured.")
		return
	}
	entries, err := h.history.Recent(r.Context(), 50)
	if err != nil {
		h.internalError(w, "load history", err)
		return
	}
	h.pages.render(w, http.StatusOK, "history", historyView{Entries: entries})
}

// ServeHealth reports liveness and the state of every dependency.
func (h *Handler) ServeHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	checks := make(map[string]string, len(h.checks))
	for _, c := range h.checks {
		if err := c.Ping(r.Context()); err != nil {
			slog.Warn("health check failed", "dependency", c.Name, "error", err)
			checks[c.Name] = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[c.Name] = "healthy"
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"status": overall, "checks": checks})
}

// editDraft parses the form and applies it to the session's draft. On
// failure the response has been written and ok is false.
func (h *Handler) editDraft(w http.ResponseWriter, r *http.Request) (d *drafts.Draft, id string, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return nil, "", false
	}

	id = h.sessionID(w, r)
	d, err := h.loadDraft(r.Context(), id)
	if err != nil {
		h.internalError(w, "load draft", err)
		return nil, "", false
	}
	if err := applyForm(d, r); err != nil {
		h.pages.render(w, http.StatusBadRequest, "index", h.indexView(d, r.PostForm.Get("group"), err.Error()))
		return nil, "", false
	}
	return d, id, true
}

func (h *Handler) saveDraft(w http.ResponseWriter, r *http.Request, id string, d *drafts.Draft) bool {
	if err := h.drafts.Save(r.Context(), id, d); err != nil {
		h.internalError(w, "save draft", err)
		return false
	}
	return true
}

func (h *Handler) internalError(w http.ResponseWriter, op string, err error) {
	slog.Error(op+" failed", "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
