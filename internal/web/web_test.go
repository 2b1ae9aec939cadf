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
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Buxxx23/order/internal/auth"
	"github.com/Buxxx23/order/internal/dedup"
	"github.com/Buxxx23/order/internal/dispatch"
	"github.com/Buxxx23/order/internal/drafts"
	"github.com/Buxxx23/order/internal/graph"
	"github.com/Buxxx23/order/internal/history"
	"github.com/Buxxx23/order/internal/models"
	"github.com/Buxxx23/order/internal/pdf"
)

// --- Test helpers ---

type testEnv struct {
	handler http.Handler
	drafts  *drafts.MemoryStore
	history *history.Memory
	graph   *graphRecorder
}

// graphRecorder is a mock token + Graph endpoint that records requests.
type graphRecorder struct {
	mu       sync.Mutex
	requests []string
	server   *httptest.Server
}

func newGraphRecorder(t *testing.T) *graphRecorder {
	g := &graphRecorder{}
	g.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		g.requests = append(g.requests, r.Method+" "+r.URL.Path)
		g.mu.Unlock()

		switch {
		case strings.HasSuffix(r.URL.Path, "/oauth2/v2.0/token"):
			r.ParseForm()
			if r.PostForm.Get("client_secret") != "form-secret" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"invalid_client","error_description":"bad secret"}`))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"web-token","token_type":"Bearer","expires_in":3600}`))
		case r.Method == http.MethodPut:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":"01X","name":"order123.pdf","webUrl":"https://contoso-my.sharepoint.com/order123.pdf"}`))
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/sendMail"):
			w.WriteHeader(http.StatusAccepted)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(g.server.Close)
	return g
}

func (g *graphRecorder) calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.requests))
	copy(out, g.requests)
	return out
}

func newTestEnv(t *testing.T, checks ...HealthCheck) *testEnv {
	t.Helper()
	g := newGraphRecorder(t)
	store := drafts.NewMemoryStore(time.Hour)
	hist := history.NewMemory(10)
	renderer := pdf.NewRenderer(pdf.Letterhead{Supplier: "ROTOGAL, S.L.U."})
	client := graph.NewClient(g.server.Client(), g.server.URL+"/v1.0")

	runner := dispatch.NewRunner(dispatch.RunnerConfig{
		Tokens:   auth.NewAcquirer(auth.Options{AuthorityHost: g.server.URL, HTTPClient: g.server.Client()}),
		Uploader: client,
		Mailer:   client,
		Renderer: renderer,
		Recorder: hist,
	})

	h := NewHandler(HandlerConfig{
		Drafts:     store,
		Guard:      dedup.NewMemory(),
		History:    hist,
		Dispatcher: runner,
		Renderer:   renderer,
		Defaults: Defaults{
			Meta: models.OrderMeta{Company: "Rotogal GmbH", ContactPerson: "Maurice Vennegerts", Email: "vennegerts@rotogal.de"},
			Graph: models.GraphSettings{
				Credentials: models.Credentials{TenantID: "tenant-1", ClientID: "client-1", ClientSecret: "configured-secret"},
				UserUPN:     "vennegerts@rotogal.de",
				Folder:      "Bestellungen/Rotogal",
			},
		},
		Checks: checks,
	})

	return &testEnv{handler: h.Routes(), drafts: store, history: hist, graph: g}
}

func (e *testEnv) do(t *testing.T, req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) post(t *testing.T, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(t, req, cookie)
}

// session opens the order page and returns the issued cookie.
func (e *testEnv) session(t *testing.T) *http.Cookie {
	t.Helper()
	rec := e.do(t, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie issued")
	return nil
}

func orderForm() url.Values {
	return url.Values{
		"company":            {"Rotogal GmbH"},
		"contact_person":     {"Maurice Vennegerts"},
		"phone":              {"015221870004"},
		"email":              {"vennegerts@rotogal.de"},
		"order_no":           {"order123"},
		"date":               {"2026-07-01"},
		"ship_to":            {"Lager 1\r\nWilsum"},
		"bill_to":            {"Rotogal GmbH"},
		"vat_id":             {"ESN0300033H"},
		"vat_rate":           {"21"},
		"footer_left":        {"Rotogal GmbH"},
		"footer_right_extra": {"Tax-No: 55/208/12604"},
		"tenant_id":          {"tenant-1"},
		"client_id":          {"client-1"},
		"client_secret":      {"form-secret"},
		"user_upn":           {"vennegerts@rotogal.de"},
		"folder":             {"Bestellungen/Rotogal"},
		"email_to":           {"einkauf@firma.de"},
		"upload":             {"on"},
		"email_send":         {"on"},
	}
}

func withLine(form url.Values) url.Values {
	out := url.Values{}
	for k, v := range form {
		out[k] = v
	}
	out.Set("group", "Bins")
	out.Set("quantity", "2")
	out.Set("model", "BI-566")
	out.Set("color", "Blue")
	out.Set("wall_build", "EPE")
	out.Set("drain", "None")
	out.Set("net_price", "1250,00")
	return out
}

// --- Tests ---

// TestIndexPrefillsDefaults verifies a new session sees the configured
// defaults and never the configured secret.
func TestIndexPrefillsDefaults(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/?group=Lids", nil), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Rotogal GmbH", "Bestellungen/Rotogal", "No positions added yet.", "<b>Lids</b>", "configured on the server"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(body, "configured-secret") {
		t.Error("page echoes the client secret")
	}
	// Lids have no drain field.
	if strings.Contains(body, `name="drain"`) {
		t.Error("drain field shown for Lids")
	}
}

// TestAddAndClearLines verifies the line builder round trip.
func TestAddAndClearLines(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.session(t)

	rec := env.post(t, "/lines", withLine(orderForm()), cookie)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("add line status = %d, body = %s", rec.Code, rec.Body)
	}
	if loc := rec.Header().Get("Location"); loc != "/?group=Bins" {
		t.Errorf("Location = %q", loc)
	}

	page := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil), cookie).Body.String()
	for _, want := range []string{"Bins, Mod. BI-566, (EPE), Blue</td>", "2.500,00 €", "VAT (21%): 525,00 €", "3.025,00 €", "order123.pdf"} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}

	d, err := env.drafts.Load(context.Background(), cookie.Value)
	if err != nil {
		t.Fatalf("Load draft: %v", err)
	}
	if d.Meta.ShipTo != "Lager 1\nWilsum" || d.Meta.VATRate != 21 {
		t.Errorf("meta = %+v", d.Meta)
	}

	rec = env.post(t, "/lines/clear", url.Values{"group": {"Bins"}}, cookie)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("clear status = %d", rec.Code)
	}
	d, _ = env.drafts.Load(context.Background(), cookie.Value)
	if len(d.Lines) != 0 || d.Meta.OrderNo != "order123" {
		t.Errorf("after clear: lines=%d order_no=%q", len(d.Lines), d.Meta.OrderNo)
	}
}

// TestAddLineValidation verifies bad input is reported on the page.
func TestAddLineValidation(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.session(t)

	form := withLine(orderForm())
	form.Set("quantity", "0")
	rec := env.post(t, "/lines", form, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "quantity must be at least 1") {
		t.Errorf("body missing validation message")
	}

	for _, price := range []string{"NaN", "Inf", "-Inf"} {
		form = withLine(orderForm())
		form.Set("net_price", price)
		rec = env.post(t, "/lines", form, cookie)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("net_price=%s: status = %d, body = %s", price, rec.Code, rec.Body)
		}
		if !strings.Contains(rec.Body.String(), "net price must be a non-negative number") {
			t.Errorf("net_price=%s: body missing validation message", price)
		}
	}

	form = orderForm()
	form.Set("vat_rate", "45")
	rec = env.post(t, "/lines/clear", form, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("out of range VAT: status = %d", rec.Code)
	}
}

// TestExportEndToEnd verifies one export issues exactly one token request,
// one PUT and one sendMail POST, and that a resubmit is refused.
func TestExportEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.session(t)

	if rec := env.post(t, "/lines", withLine(orderForm()), cookie); rec.Code != http.StatusSeeOther {
		t.Fatalf("add line status = %d", rec.Code)
	}

	form := orderForm()
	form.Set("submission_id", "sub-1")
	rec := env.post(t, "/export", form, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d, body = %s", rec.Code, rec.Body)
	}
	body := rec.Body.String()
	for _, want := range []string{"Uploaded to OneDrive.", "Email sent via Microsoft Graph to einkauf@firma.de.", "https://contoso-my.sharepoint.com/order123.pdf"} {
		if !strings.Contains(body, want) {
			t.Errorf("result missing %q", want)
		}
	}

	want := []string{
		"POST /tenant-1/oauth2/v2.0/token",
		"PUT /v1.0/users/vennegerts@rotogal.de/drive/root:/Bestellungen/Rotogal/order123.pdf:/content",
		"POST /v1.0/users/vennegerts@rotogal.de/sendMail",
	}
	got := env.graph.calls()
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("graph requests:\n got %v\nwant %v", got, want)
	}

	// Same submission ID again: refused, no further Graph traffic.
	rec = env.post(t, "/export", form, cookie)
	if rec.Code != http.StatusConflict {
		t.Errorf("resubmit status = %d, want 409", rec.Code)
	}
	if n := len(env.graph.calls()); n != 3 {
		t.Errorf("graph requests after resubmit = %d, want 3", n)
	}

	entries, _ := env.history.Recent(context.Background(), 10)
	if len(entries) != 1 || entries[0].UploadStatus != history.StatusSucceeded || entries[0].SubmissionID != "sub-1" {
		t.Errorf("history = %+v", entries)
	}
}

// TestExportAuthFailureAllowsRetry verifies a failed export releases its
// submission ID.
func TestExportAuthFailureAllowsRetry(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.session(t)
	env.post(t, "/lines", withLine(orderForm()), cookie)

	form := orderForm()
	form.Set("submission_id", "sub-2")
	form.Del("client_secret") // falls back to the configured secret, which the mock rejects

	rec := env.post(t, "/export", form, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "graph auth failed (invalid_client): bad secret") {
		t.Errorf("result missing auth error: %s", rec.Body)
	}

	form.Set("client_secret", "form-secret")
	rec = env.post(t, "/export", form, cookie)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Uploaded to OneDrive.") {
		t.Errorf("retry status = %d", rec.Code)
	}
}

// TestExportIncompleteSettings verifies the warning text.
func TestExportIncompleteSettings(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.session(t)
	env.post(t, "/lines", withLine(orderForm()), cookie)

	form := orderForm()
	form.Set("tenant_id", "")
	rec := env.post(t, "/export", form, cookie)
	if !strings.Contains(rec.Body.String(), dispatch.IncompleteSettingsWarning) {
		t.Errorf("result missing warning: %s", rec.Body)
	}
	if n := len(env.graph.calls()); n != 0 {
		t.Errorf("graph requests = %d, want 0", n)
	}
}

// TestExportWithoutLines verifies an empty order is not exported.
func TestExportWithoutLines(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.session(t)

	rec := env.post(t, "/export", orderForm(), cookie)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), noLinesMessage) {
		t.Errorf("status = %d", rec.Code)
	}
}

// TestDownloadPDF verifies the attachment response.
func TestDownloadPDF(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.session(t)
	env.post(t, "/lines", withLine(orderForm()), cookie)

	rec := env.post(t, "/pdf", url.Values{}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="order123.pdf"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF-") {
		t.Error("body is not a PDF")
	}
	if n := len(env.graph.calls()); n != 0 {
		t.Errorf("download made %d graph requests", n)
	}
}

func TestHistoryPage(t *testing.T) {
	env := newTestEnv(t)
	env.history.Record(context.Background(), history.Entry{
		OrderNo: "order777", Filename: "order777.pdf",
		UploadStatus: history.StatusFailed, UploadDetail: "OneDrive upload failed (403): denied",
		MailStatus: history.StatusSkipped,
	})

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/history", nil), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	for _, want := range []string{"order777", "OneDrive upload failed (403): denied"} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("history missing %q", want)
		}
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, HealthCheck{Name: "redis", Ping: func(context.Context) error { return nil }})
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil), nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"healthy"`) {
		t.Errorf("healthy: status = %d, body = %s", rec.Code, rec.Body)
	}

	env = newTestEnv(t, HealthCheck{Name: "postgres", Ping: func(context.Context) error { return errors.New("down") }})
	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil), nil)
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), `"postgres":"unhealthy"`) {
		t.Errorf("unhealthy: status = %d, body = %s", rec.Code, rec.Body)
	}
}

func TestRequestLoggerKeepsStatus(t *testing.T) {
	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
}
