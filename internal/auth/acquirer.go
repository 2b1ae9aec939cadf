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

// Package auth acquires Microsoft Graph access tokens with the OAuth2
// client-credentials grant.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/microsoft"

	"github.com/Buxxx23/order/internal/models"
)

// GraphScope requests the application permissions granted to the app.
const GraphScope = "https://graph.microsoft.com/.default"

// AuthError reports a failed token request. Code and Description carry the
// identity provider's error fields when it returned any.
type AuthError struct {
	StatusCode  int
	Code        string
	Description string
	Err         error
}

func (e *AuthError) Error() string {
	detail := e.Description
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	if detail == "" {
		detail = "unknown error"
	}
	if e.Code != "" {
		return fmt.Sprintf("graph auth failed (%s): %s", e.Code, detail)
	}
	return fmt.Sprintf("graph auth failed: %s", detail)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Options tune an Acquirer.
type Options struct {
	// AuthorityHost replaces https://login.microsoftonline.com.
	AuthorityHost string
	// HTTPClient performs the token requests. Defaults to http.DefaultClient.
	HTTPClient *http.Client
	// DisableCache forces a token request on every call.
	DisableCache bool
}

type cacheKey struct {
	tenantID     string
	clientID     string
	clientSecret string
}

// Acquirer exchanges client credentials for bearer tokens. Tokens are kept
// in memory per credential triple until they expire.
type Acquirer struct {
	authorityHost string
	httpClient    *http.Client
	cache         bool

	mu     sync.Mutex
	tokens map[cacheKey]*oauth2.Token
}

// NewAcquirer creates a token acquirer.
func NewAcquirer(opts Options) *Acquirer {
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &Acquirer{
		authorityHost: strings.TrimRight(opts.AuthorityHost, "/"),
		httpClient:    client,
		cache:         !opts.DisableCache,
		tokens:        make(map[cacheKey]*oauth2.Token),
	}
}

// Token returns a bearer token for the given credentials.
func (a *Acquirer) Token(ctx context.Context, creds models.Credentials) (string, error) {
	if !creds.Complete() {
		return "", &AuthError{Description: "tenant id, client id and client secret are required"}
	}

	key := cacheKey{creds.TenantID, creds.ClientID, creds.ClientSecret}
	if a.cache {
		a.mu.Lock()
		tok, ok := a.tokens[key]
		a.mu.Unlock()
		if ok && tok.Valid() {
			return tok.AccessToken, nil
		}
	}

	cfg := a.config(creds)
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)

	tok, err := cfg.Token(ctx)
	if err != nil {
		authErr := classify(err)
		slog.Warn("token request failed",
			"tenant", creds.TenantID,
			"client_id", creds.ClientID,
			"status", authErr.StatusCode,
			"code", authErr.Code,
		)
		return "", authErr
	}
	if tok.AccessToken == "" {
		return "", &AuthError{Description: "token response carried no access_token"}
	}

	if a.cache {
		a.mu.Lock()
		a.tokens[key] = tok
		a.mu.Unlock()
	}

	slog.Debug("acquired graph token", "tenant", creds.TenantID, "expiry", tok.Expiry)
	return tok.AccessToken, nil
}

// Forget drops any cached token for the credentials.
func (a *Acquirer) Forget(creds models.Credentials) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.tokens, cacheKey{creds.TenantID, creds.ClientID, creds.ClientSecret})
}

// config builds the client-credentials request for a tenant.
func (a *Acquirer) config(creds models.Credentials) *clientcredentials.Config {
	endpoint := microsoft.AzureADEndpoint(creds.TenantID)
	if a.authorityHost != "" {
		endpoint.TokenURL = fmt.Sprintf("%s/%s/oauth2/v2.0/token", a.authorityHost, creds.TenantID)
	}
	return &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     endpoint.TokenURL,
		Scopes:       []string{GraphScope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
}

// classify maps an oauth2 failure onto AuthError, keeping the provider's
// error code and description.
func classify(err error) *AuthError {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		ae := &AuthError{
			Code:        re.ErrorCode,
			Description: re.ErrorDescription,
			Err:         err,
		}
		if re.Response != nil {
			ae.StatusCode = re.Response.StatusCode
		}
		if ae.Description == "" && len(re.Body) > 0 {
			ae.Description = strings.TrimSpace(string(re.Body))
		}
		return ae
	}
	return &AuthError{Err: err}
}
