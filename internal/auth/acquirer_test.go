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

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/Buxxx23/order/internal/models"
)

var testCreds = models.Credentials{
	TenantID:     "tenant-1",
	ClientID:     "client-1",
	ClientSecret: "s3cret",
}

// newTokenServer returns a mock identity provider that issues tok-1 for
// the test credentials and rejects everything else.
func newTokenServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)

		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/tenant-1/oauth2/v2.0/token" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		if got := r.PostForm.Get("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostForm.Get("scope"); got != GraphScope {
			t.Errorf("scope = %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("client_id") != "client-1" || r.PostForm.Get("client_secret") != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid_client","error_description":"AADSTS7000215: Invalid client secret provided."}`))
			return
		}
		w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","expires_in":3599}`))
	}))
}

// TestToken_ValidCredentials verifies a token is returned for good credentials.
func TestToken_ValidCredentials(t *testing.T) {
	var calls int32
	server := newTokenServer(t, &calls)
	defer server.Close()

	a := NewAcquirer(Options{AuthorityHost: server.URL, HTTPClient: server.Client()})

	tok, err := a.Token(context.Background(), testCreds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok != "tok-1" {
		t.Errorf("token = %q, want tok-1", tok)
	}
}

// TestToken_InvalidCredentials verifies provider rejections surface as AuthError.
func TestToken_InvalidCredentials(t *testing.T) {
	var calls int32
	server := newTokenServer(t, &calls)
	defer server.Close()

	a := NewAcquirer(Options{AuthorityHost: server.URL, HTTPClient: server.Client()})

	bad := testCreds
	bad.ClientSecret = "wrong"
	tok, err := a.Token(context.Background(), bad)
	if tok != "" {
		t.Errorf("token = %q, want empty", tok)
	}

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want *AuthError", err)
	}
	if authErr.Code != "invalid_client" {
		t.Errorf("Code = %q, want invalid_client", authErr.Code)
	}
	if authErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", authErr.StatusCode)
	}
	if !strings.Contains(err.Error(), "AADSTS7000215") {
		t.Errorf("error should carry provider detail, got %q", err.Error())
	}
}

// TestToken_MalformedResponse verifies a success status without a token fails.
func TestToken_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	a := NewAcquirer(Options{AuthorityHost: server.URL, HTTPClient: server.Client()})

	_, err := a.Token(context.Background(), testCreds)
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want *AuthError", err)
	}
}

// TestToken_IncompleteCredentials verifies no request is made without credentials.
func TestToken_IncompleteCredentials(t *testing.T) {
	var calls int32
	server := newTokenServer(t, &calls)
	defer server.Close()

	a := NewAcquirer(Options{AuthorityHost: server.URL, HTTPClient: server.Client()})

	_, err := a.Token(context.Background(), models.Credentials{TenantID: "tenant-1"})
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want *AuthError", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("token endpoint was called without credentials")
	}
}

// TestToken_Cache verifies tokens are reused until Forget or when caching is off.
func TestToken_Cache(t *testing.T) {
	var calls int32
	server := newTokenServer(t, &calls)
	defer server.Close()

	a := NewAcquirer(Options{AuthorityHost: server.URL, HTTPClient: server.Client()})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := a.Token(ctx, testCreds); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("token endpoint called %d times, want 1", got)
	}

	a.Forget(testCreds)
	if _, err := a.Token(ctx, testCreds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("token endpoint called %d times after Forget, want 2", got)
	}

	uncached := NewAcquirer(Options{AuthorityHost: server.URL, HTTPClient: server.Client(), DisableCache: true})
	uncached.Token(ctx, testCreds)
	uncached.Token(ctx, testCreds)
	if got := atomic.LoadInt32(&calls); got != 4 {
		t.Errorf("token endpoint called %d times without cache, want 4", got)
	}
}
