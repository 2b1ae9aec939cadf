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

package drafts

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	raw     []byte
	expires time.Time
}

// MemoryStore keeps drafts in process memory. Entries are stored encoded
// so callers never share a Draft value with the store.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

// NewMemoryStore creates an in-process draft store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (*Draft, error) {
	s.mu.Lock()
	e, ok := s.entries[sessionID]
	if ok && !s.now().Before(e.expires) {
		delete(s.entries, sessionID)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}

	var d Draft
	if err := json.Unmarshal(e.raw, &d); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &d, nil
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, d *Draft) error {
	now := s.now()
	d.UpdatedAt = now.UTC()
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sessionID] = memoryEntry{raw: raw, expires: now.Add(s.ttl)}
	s.sweep(now)
	return nil
}

// sweep drops expired entries. Caller holds mu.
func (s *MemoryStore) sweep(now time.Time) {
	for id, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, id)
		}
	}
}
