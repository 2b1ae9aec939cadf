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

// Package dispatch runs one order submission: render the PDF, then
// optionally upload it to OneDrive and mail it through Graph.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Buxxx23/order/internal/auth"
	"github.com/Buxxx23/order/internal/graph"
	"github.com/Buxxx23/order/internal/history"
	"github.com/Buxxx23/order/internal/models"
	"github.com/Buxxx23/order/internal/order"
)

// IncompleteSettingsWarning is shown when Graph actions are requested but
// the settings cannot authenticate.
const IncompleteSettingsWarning = "To use OneDrive/Email, please fill Tenant ID, Client ID, Client Secret and User UPN."

// TokenProvider acquires bearer tokens.
type TokenProvider interface {
	Token(ctx context.Context, creds models.Credentials) (string, error)
}

// tokenForgetter is implemented by providers that cache tokens.
type tokenForgetter interface {
	Forget(creds models.Credentials)
}

// Uploader stores a file in OneDrive.
type Uploader interface {
	UploadFile(ctx context.Context, token string, target models.UploadTarget, content []byte) (*graph.DriveItem, error)
}

// Mailer sends a message from a mailbox.
type Mailer interface {
	SendMail(ctx context.Context, token, senderUPN string, msg models.EmailMessage) error
}

// Renderer produces the order document.
type Renderer interface {
	Render(o models.Order) ([]byte, error)
}

// Recorder keeps an audit trail of submissions.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Status is the outcome of one pipeline step.
type Status string

const (
	StatusSkipped   Status = history.StatusSkipped
	StatusSucceeded Status = history.StatusSucceeded
	StatusFailed    Status = history.StatusFailed
)

// StepResult describes how a step ended. Err is set when Status is failed.
type StepResult struct {
	Status Status
	Detail string
	Err    error
}

// Request is a single submission.
type Request struct {
	Order        models.Order
	Graph        models.GraphSettings
	Upload       bool
	Email        bool
	SubmissionID string
}

// Result summarises a submission. The PDF is always present, whatever
// happened to the Graph steps.
type Result struct {
	Filename string
	PDF      []byte
	Warning  string
	AuthErr  error
	Upload   StepResult
	Mail     StepResult
	Item     *graph.DriveItem
	Elapsed  time.Duration
}

// Failed reports whether any requested step failed.
func (r *Result) Failed() bool {
	return r.AuthErr != nil || r.Upload.Status == StatusFailed || r.Mail.Status == StatusFailed
}

// Runner performs submissions.
type Runner struct {
	tokens   TokenProvider
	uploader Uploader
	mailer   Mailer
	renderer Renderer
	recorder Recorder
}

// RunnerConfig holds dependencies for the runner. Recorder is optional.
type RunnerConfig struct {
	Tokens   TokenProvider
	Uploader Uploader
	Mailer   Mailer
	Renderer Renderer
	Recorder Recorder
}

// NewRunner creates a dispatch runner.
func NewRunner(cfg RunnerConfig) *Runner {
	return &Runner{
		tokens:   cfg.Tokens,
		uploader: cfg.Uploader,
		mailer:   cfg.Mailer,
		renderer: cfg.Renderer,
		recorder: cfg.Recorder,
	}
}

// Run renders the order and executes the requested Graph steps. The
// returned error is non-nil only when rendering fails, in which case
// nothing is uploaded or sent. Step failures are reported in the Result.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	filename := order.SanitizeFilename(req.Order.Meta.OrderNo)

	pdf, err := r.renderer.Render(req.Order)
	if err != nil {
		return nil, fmt.Errorf("render order %s: %w", req.Order.Meta.OrderNo, err)
	}

	res := &Result{
		Filename: filename,
		PDF:      pdf,
		Upload:   StepResult{Status: StatusSkipped},
		Mail:     StepResult{Status: StatusSkipped},
	}
	defer func() {
		res.Elapsed = time.Since(start)
		r.record(ctx, req, res)
	}()

	if !req.Upload && !req.Email {
		return res, nil
	}

	settings := req.Graph
	if !settings.Ready() {
		res.Warning = IncompleteSettingsWarning
		slog.Warn("graph settings incomplete, skipping upload and email",
			"order_no", req.Order.Meta.OrderNo,
		)
		return res, nil
	}

	sendMail := req.Email && len(settings.Recipients) > 0
	if req.Email && !sendMail {
		res.Mail.Detail = "no recipients"
	}
	if !req.Upload && !sendMail {
		return res, nil
	}

	token, err := r.tokens.Token(ctx, settings.Credentials)
	if err != nil {
		res.AuthErr = err
		if req.Upload {
			res.Upload = StepResult{Status: StatusFailed, Err: err}
		}
		if sendMail {
			res.Mail = StepResult{Status: StatusFailed, Err: err}
		}
		slog.Error("graph authentication failed",
			"order_no", req.Order.Meta.OrderNo,
			"error", err,
		)
		return res, nil
	}

	if req.Upload {
		res.Upload, res.Item = r.upload(ctx, token, settings, filename, pdf)
	}
	if sendMail {
		res.Mail = r.mail(ctx, token, settings, req.Order.Meta, filename, pdf)
	}
	if unauthorized(res.Upload.Err) || unauthorized(res.Mail.Err) {
		r.forgetToken(settings.Credentials)
	}

	return res, nil
}

// forgetToken drops a cached token Graph refused, so the next submission
// requests a fresh one.
func (r *Runner) forgetToken(creds models.Credentials) {
	f, ok := r.tokens.(tokenForgetter)
	if !ok {
		return
	}
	f.Forget(creds)
	slog.Info("dropped rejected graph token", "tenant", creds.TenantID, "client_id", creds.ClientID)
}

func unauthorized(err error) bool {
	var uploadErr *graph.UploadError
	if errors.As(err, &uploadErr) {
		return uploadErr.StatusCode == http.StatusUnauthorized
	}
	var mailErr *graph.MailError
	if errors.As(err, &mailErr) {
		return mailErr.StatusCode == http.StatusUnauthorized
	}
	return false
}

func (r *Runner) upload(ctx context.Context, token string, settings models.GraphSettings, filename string, pdf []byte) (StepResult, *graph.DriveItem) {
	target := models.UploadTarget{
		UserPrincipalName: settings.UserUPN,
		FolderPath:        settings.Folder,
		Filename:          filename,
	}

	item, err := r.uploader.UploadFile(ctx, token, target, pdf)
	if err != nil {
		slog.Error("onedrive upload failed",
			"user", settings.UserUPN,
			"folder", settings.Folder,
			"file", filename,
			"error", err,
		)
		return StepResult{Status: StatusFailed, Err: err}, nil
	}

	slog.Info("uploaded order to onedrive",
		"user", settings.UserUPN,
		"folder", settings.Folder,
		"file", filename,
		"size", len(pdf),
	)
	detail := strings.Trim(settings.Folder+"/"+filename, "/")
	if item != nil && item.WebURL != "" {
		detail = item.WebURL
	}
	return StepResult{Status: StatusSucceeded, Detail: detail}, item
}

func (r *Runner) mail(ctx context.Context, token string, settings models.GraphSettings, meta models.OrderMeta, filename string, pdf []byte) StepResult {
	msg := order.Notification(meta, settings.Recipients, filename, pdf)

	if err := r.mailer.SendMail(ctx, token, settings.UserUPN, msg); err != nil {
		slog.Error("order email failed",
			"sender", settings.UserUPN,
			"recipients", len(msg.To),
			"error", err,
		)
		return StepResult{Status: StatusFailed, Err: err}
	}

	slog.Info("sent order email",
		"sender", settings.UserUPN,
		"recipients", len(msg.To),
		"subject", msg.Subject,
	)
	return StepResult{Status: StatusSucceeded, Detail: strings.Join(msg.To, ", ")}
}

// record writes the audit entry. Failures are logged and otherwise ignored.
func (r *Runner) record(ctx context.Context, req Request, res *Result) {
	if r.recorder == nil {
		return
	}
	e := history.Entry{
		SubmissionID: req.SubmissionID,
		OrderNo:      req.Order.Meta.OrderNo,
		Filename:     res.Filename,
		UploadStatus: string(res.Upload.Status),
		UploadDetail: stepDetail(res.Upload),
		MailStatus:   string(res.Mail.Status),
		MailDetail:   stepDetail(res.Mail),
	}
	if res.Item != nil {
		e.WebURL = res.Item.WebURL
	}
	if err := r.recorder.Record(ctx, e); err != nil {
		slog.Warn("failed to record dispatch", "order_no", e.OrderNo, "error", err)
	}
}

func stepDetail(s StepResult) string {
	if s.Err != nil {
		return s.Err.Error()
	}
	return s.Detail
}

// Kind names the error class of a step failure: "auth", "upload", "mail",
// or "" for anything else.
func Kind(err error) string {
	var authErr *auth.AuthError
	var uploadErr *graph.UploadError
	var mailErr *graph.MailError
	switch {
	case errors.As(err, &authErr):
		return "auth"
	case errors.As(err, &uploadErr):
		return "upload"
	case errors.As(err, &mailErr):
		return "mail"
	default:
		return ""
	}
}
