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

package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// UserInfo identifies the mailbox the desk acts for.
type UserInfo struct {
	ID                string `json:"id"`
	Mail              string `json:"mail"`
	DisplayName       string `json:"displayName"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// LookupUser resolves a UPN to its directory entry. It fails when the
// application lacks User.Read.All or the mailbox does not exist, which is
// what the start-up preflight checks for.
func (c *Client) LookupUser(ctx context.Context, token, upn string) (*UserInfo, error) {
	params := url.Values{}
	params.Set("$select", "id,mail,displayName,userPrincipalName")

	resp, err := c.do(ctx, http.MethodGet, c.userPath(upn)+"?"+params.Encode(), token, "", nil)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		code, msg := parseError(resp.Body)
		return nil, fmt.Errorf("Graph /users/%s returned HTTP %d: %s %s", upn, resp.StatusCode, code, msg)
	}

	var u UserInfo
	if err := json.Unmarshal(resp.Body, &u); err != nil {
		return nil, fmt.Errorf("decode user response: %w", err)
	}

	if u.Mail == "" {
		slog.Warn("graph user has no mailbox", "upn", upn)
	}

	return &u, nil
}
