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

// Package web serves the order form: it edits a per-session draft, renders
// it to PDF and dispatches it to OneDrive and mail.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Buxxx23/order/internal/dedup"
	"github.com/Buxxx23/order/internal/dispatch"
	"github.com/Buxxx23/order/internal/drafts"
	"github.com/Buxxx23/order/internal/history"
	"github.com/Buxxx23/order/internal/models"
)

// Dispatcher runs a submission.
type Dispatcher interface {
	Run(ctx context.Context, req dispatch.Request) (*dispatch.Result, error)
}

// HistoryReader lists recent dispatches.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// HealthCheck is a named dependency probe for /health.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// Defaults prefill a new draft.
type Defaults struct {
	Meta       models.OrderMeta
	Graph      models.GraphSettings
	AutoUpload bool
	AutoEmail  bool
}

// Handler serves the order form routes.
type Handler struct {
	drafts     drafts.Store
	guard      dedup.Guard
	history    HistoryReader
	dispatcher Dispatcher
	renderer   dispatch.Renderer
	defaults   Defaults
	checks     []HealthCheck
	secure     bool
	now        func() time.Time
	pages      *pages
}

// HandlerConfig holds dependencies for the handler. History and Checks
// are optional.
type HandlerConfig struct {
	Drafts     drafts.Store
	Guard      dedup.Guard
	History    HistoryReader
	Dispatcher Dispatcher
	Renderer   dispatch.Renderer
	Defaults   Defaults
	Checks     []HealthCheck
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
}

// NewHandler creates the order form handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		drafts:     cfg.Drafts,
		guard:      cfg.Guard,
		history:    cfg.History,
		dispatcher: cfg.Dispatcher,
		renderer:   cfg.Renderer,
		defaults:   cfg.Defaults,
		checks:     cfg.Checks,
		secure:     cfg.SecureCookies,
		now:        time.Now,
		pages:      mustLoadPages(),
	}
}

// Routes returns the mux with all endpoints, wrapped in request logging.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.ServeIndex)
	mux.HandleFunc("POST /lines", h.ServeAddLine)
	mux.HandleFunc("POST /lines/clear", h.ServeClearLines)
	mux.HandleFunc("POST /export", h.ServeExport)
	mux.HandleFunc("POST /pdf", h.ServePDF)
	mux.HandleFunc("GET /history", h.ServeHistory)
	mux.HandleFunc("GET /health", h.ServeHealth)
	return RequestLogger(mux)
}

// Serve starts the HTTP server. ready is closed once the listener is bound.
// The server shuts down when ctx is cancelled and closes done when in-flight
// requests have finished.
func Serve(ctx context.Context, port int, handler http.Handler) (ready, done <-chan struct{}, err error) {
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, nil, fmt.Errorf("bind port %d: %w", port, err)
	}

	readyCh := make(chan struct{})
	doneCh := make(chan struct{})

	go func() {
		defer close(doneCh)
		<-ctx.Done()
		slog.Info("web server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("web server shutdown error", "error", err)
		}
	}()

	go func() {
		slog.Info("web server listening", "port", port)
		close(readyCh)
		if err := server.Serve(ln); err != http.ErrServerClosed {
			slog.Error("web server error", "error", err)
		}
	}()

	return readyCh, doneCh, nil
}
