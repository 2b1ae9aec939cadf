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

// Package dedup guards against the same form submission being dispatched
// twice, e.g. after a double click or a browser resubmit.
package dedup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is how long a claimed submission ID is remembered.
	DefaultTTL = 24 * time.Hour

	// keyPrefix namespaces dedup keys in Redis.
	keyPrefix = "order:submission:"
)

// Guard claims submission IDs.
type Guard interface {
	// Claim returns true if the ID had not been claimed before. The ID is
	// marked as claimed atomically.
	Claim(ctx context.Context, submissionID string) (bool, error)
	// Release forgets a claim so the submission may be retried.
	Release(ctx context.Context, submissionID string) error
}

// Filter tracks submission IDs in Redis.
type Filter struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewFilter creates a dedup filter backed by Redis.
func NewFilter(rdb *redis.Client) *Filter {
	return &Filter{
		rdb: rdb,
		ttl: DefaultTTL,
	}
}

func (f *Filter) Claim(ctx context.Context, submissionID string) (bool, error) {
	key := fmt.Sprintf("%s%s", keyPrefix, submissionID)

	// SET NX = set only if key does not exist. Returns true if the key was set.
	set, err := f.rdb.SetNX(ctx, key, 1, f.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup SETNX: %w", err)
	}

	return set, nil
}

func (f *Filter) Release(ctx context.Context, submissionID string) error {
	if err := f.rdb.Del(ctx, keyPrefix+submissionID).Err(); err != nil {
		return fmt.Errorf("dedup DEL: %w", err)
	}
	return nil
}

// Memory is an in-process Guard for single-instance deployments.
type Memory struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	seen map[string]time.Time
}

// NewMemory creates an in-process guard.
func NewMemory() *Memory {
	return &Memory{
		ttl:  DefaultTTL,
		now:  time.Now,
		seen: make(map[string]time.Time),
	}
}

func (m *Memory) Claim(_ context.Context, submissionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if exp, ok := m.seen[submissionID]; ok && now.Before(exp) {
		return false, nil
	}
	for id, exp := range m.seen {
		if !now.Before(exp) {
			delete(m.seen, id)
		}
	}
	m.seen[submissionID] = now.Add(m.ttl)
	return true, nil
}

func (m *Memory) Release(_ context.Context, submissionID string) error {
	m.mu.Lock()
	delete(m.seen, submissionID)
	m.mu.Unlock()
	return nil
}
