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

// Package history keeps an audit trail of dispatched orders: which file
// was produced and how the upload and mail steps ended. Documents and
// credentials are never stored.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Step outcomes.
const (
	StatusSkipped   = "skipped"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Entry is one dispatched order.
type Entry struct {
	ID           int64
	SubmissionID string
	OrderNo      string
	Filename     string
	UploadStatus string
	UploadDetail string
	MailStatus   string
	MailDetail   string
	WebURL       string
	CreatedAt    time.Time
}

// Store persists entries in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a history store backed by the given Postgres pool.
// It ensures the dispatches table exists on creation.
func NewStore(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure history schema: %w", err)
	}
	slog.Info("history store initialised")
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS dispatches (
			id             BIGSERIAL PRIMARY KEY,
			submission_id  TEXT DEFAULT '',
			order_no       TEXT NOT NULL,
			filename       TEXT NOT NULL,
			upload_status  TEXT NOT NULL,
			upload_detail  TEXT DEFAULT '',
			mail_status    TEXT NOT NULL,
			mail_detail    TEXT DEFAULT '',
			web_url        TEXT DEFAULT '',
			created_at     TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_dispatches_created ON dispatches(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_dispatches_order ON dispatches(order_no);
	`)
	return err
}

// Record inserts an entry.
func (s *Store) Record(ctx context.Context, e Entry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO dispatches
			(submission_id, order_no, filename, upload_status, upload_detail,
			 mail_status, mail_detail, web_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.SubmissionID, e.OrderNo, e.Filename, e.UploadStatus, e.UploadDetail,
		e.MailStatus, e.MailDetail, e.WebURL)
	if err != nil {
		return fmt.Errorf("insert dispatch: %w", err)
	}
	return nil
}

// Recent returns the newest entries first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, submission_id, order_no, filename, upload_status,
		       upload_detail, mail_status, mail_detail, web_url, created_at
		FROM dispatches
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query dispatches: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// collectEntries scans multiple rows into a slice of entries.
func collectEntries(rows pgx.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.SubmissionID, &e.OrderNo, &e.Filename, &e.UploadStatus,
			&e.UploadDetail, &e.MailStatus, &e.MailDetail, &e.WebURL, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Memory keeps the most recent entries in process memory.
type Memory struct {
	mu      sync.Mutex
	size    int
	nextID  int64
	entries []Entry
}

// NewMemory creates an in-process history holding at most size entries.
func NewMemory(size int) *Memory {
	if size <= 0 {
		size = 100
	}
	return &Memory{size: size}
}

func (m *Memory) Record(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	e.ID = m.nextID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m.entries = append(m.entries, e)
	if len(m.entries) > m.size {
		m.entries = m.entries[len(m.entries)-m.size:]
	}
	return nil
}

func (m *Memory) Recent(_ context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 || limit > len(m.entries) {
		limit = len(m.entries)
	}
	out := make([]Entry, 0, limit)
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}
