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

// Order desk dispatch command
//
// Standalone CLI that renders an order described in a YAML file and runs
// the same OneDrive upload and mail steps as the web form.
//
// Usage:
//
//	go run ./cmd/dispatch/ -order order.yaml [-upload] [-email] [-out order.pdf]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Buxxx23/order/internal/auth"
	"github.com/Buxxx23/order/internal/config"
	"github.com/Buxxx23/order/internal/dispatch"
	"github.com/Buxxx23/order/internal/graph"
	"github.com/Buxxx23/order/internal/models"
	"github.com/Buxxx23/order/internal/order"
	"github.com/Buxxx23/order/internal/pdf"
)

func main() {
	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// --- CLI Flags ---
	orderFlag := flag.String("order", "", "Path to the order YAML file (required)")
	uploadFlag := flag.Bool("upload", false, "Upload the PDF to OneDrive")
	emailFlag := flag.Bool("email", false, "Send the PDF by email")
	outFlag := flag.String("out", "", "Also write the PDF to this path")
	emailToFlag := flag.String("to", "", "Comma-separated recipients (overrides EMAIL_TO)")
	flag.Parse()

	if *orderFlag == "" {
		fmt.Fprintf(os.Stderr, "Error: -order is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	o, err := loadOrder(*orderFlag, cfg.Order, time.Now())
	if err != nil {
		slog.Error("failed to load order", "path", *orderFlag, "error", err)
		os.Exit(1)
	}

	settings := cfg.Graph
	if *emailToFlag != "" {
		settings.Recipients = models.ParseRecipients(*emailToFlag)
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	graphClient := graph.NewClient(httpClient, cfg.GraphBaseURL)
	runner := dispatch.NewRunner(dispatch.RunnerConfig{
		Tokens: auth.NewAcquirer(auth.Options{
			AuthorityHost: cfg.AuthorityHost,
			HTTPClient:    httpClient,
			DisableCache:  true,
		}),
		Uploader: graphClient,
		Mailer:   graphClient,
		Renderer: pdf.NewRenderer(pdf.Letterhead{
			Supplier: cfg.Order.Supplier,
			Notice:   cfg.Order.Notice,
		}),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res, err := runner.Run(ctx, dispatch.Request{
		Order:  o,
		Graph:  settings,
		Upload: *uploadFlag,
		Email:  *emailFlag,
	})
	if err != nil {
		slog.Error("dispatch failed", "error", err)
		os.Exit(1)
	}

	if *outFlag != "" {
		if err := os.WriteFile(*outFlag, res.PDF, 0o644); err != nil {
			slog.Error("failed to write PDF", "path", *outFlag, "error", err)
			os.Exit(1)
		}
		slog.Info("wrote PDF", "path", *outFlag, "bytes", len(res.PDF))
	}

	// --- Summary ---
	printSummary(os.Stdout, res)
	if res.Failed() {
		os.Exit(1)
	}
}

// orderFile is the YAML layout accepted by -order.
type orderFile struct {
	Meta  models.OrderMeta  `yaml:"meta"`
	Lines []models.LineItem `yaml:"lines"`
}

// loadOrder reads and validates an order file. Header fields left empty
// take the configured defaults.
func loadOrder(path string, defaults config.OrderDefaults, now time.Time) (models.Order, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Order{}, fmt.Errorf("read order file: %w", err)
	}

	var f orderFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return models.Order{}, fmt.Errorf("parse order YAML: %w", err)
	}
	if len(f.Lines) == 0 {
		return models.Order{}, fmt.Errorf("order has no lines")
	}

	meta := f.Meta
	meta.Company = orDefault(meta.Company, defaults.Company)
	meta.ContactPerson = orDefault(meta.ContactPerson, defaults.ContactPerson)
	meta.Phone = orDefault(meta.Phone, defaults.Phone)
	meta.Email = orDefault(meta.Email, defaults.Email)
	meta.BillTo = orDefault(meta.BillTo, defaults.BillTo)
	meta.FooterLeft = orDefault(meta.FooterLeft, defaults.FooterLeft)
	meta.FooterRightExtra = orDefault(meta.FooterRightExtra, defaults.FooterRightExtra)
	if meta.Date.IsZero() {
		y, m, d := now.Date()
		meta.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	if meta.VATID == "" {
		meta.VATID = order.VATOptions[0].ID
	}
	meta.VATID, meta.VATRate, err = order.ResolveVAT(meta.VATID, meta.VATRate)
	if err != nil {
		return models.Order{}, err
	}

	lines := make([]models.LineItem, 0, len(f.Lines))
	for i, in := range f.Lines {
		l, err := order.NewLineItem(in)
		if err != nil {
			return models.Order{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		lines = append(lines, l)
	}

	return models.Order{Meta: meta, Lines: lines}, nil
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func printSummary(w io.Writer, res *dispatch.Result) {
	fmt.Fprintf(w, "file:     %s (%d bytes)\n", res.Filename, len(res.PDF))
	if res.Warning != "" {
		fmt.Fprintf(w, "warning:  %s\n", res.Warning)
	}
	if res.AuthErr != nil {
		fmt.Fprintf(w, "auth:     %v\n", res.AuthErr)
	}
	fmt.Fprintf(w, "onedrive: %s\n", stepLine(res.Upload))
	fmt.Fprintf(w, "email:    %s\n", stepLine(res.Mail))
}

func stepLine(s dispatch.StepResult) string {
	switch {
	case s.Err != nil:
		return fmt.Sprintf("%s: %v", s.Status, s.Err)
	case s.Detail != "":
		return fmt.Sprintf("%s (%s)", s.Status, s.Detail)
	default:
		return string(s.Status)
	}
}
