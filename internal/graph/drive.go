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
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/Buxxx23/order/internal/models"
)

// DriveItem is the subset of the uploaded item Graph echoes back.
type DriveItem struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	WebURL string `json:"webUrl"`
	Size   int64  `json:"size"`
}

// UploadURL returns the simple-upload endpoint for a target:
// {base}/users/{upn}/drive/root:/{folder}/{filename}:/content.
func (c *Client) UploadURL(target models.UploadTarget) string {
	var segments []string
	for _, s := range strings.Split(strings.Trim(target.FolderPath, "/"), "/") {
		if s = strings.TrimSpace(s); s != "" {
			segments = append(segments, url.PathEscape(s))
		}
	}
	segments = append(segments, url.PathEscape(target.Filename))

	return c.userPath(target.UserPrincipalName) + "/drive/root:/" + strings.Join(segments, "/") + ":/content"
}

// UploadFile PUTs content to the target path in the user's OneDrive,
// replacing any file with the same name. There is no chunking; Graph's
// simple upload accepts files up to 250 MB.
func (c *Client) UploadFile(ctx context.Context, token string, target models.UploadTarget, content []byte) (*DriveItem, error) {
	uploadURL := c.UploadURL(target)

	resp, err := c.do(ctx, http.MethodPut, uploadURL, token, "application/pdf", content)
	if err != nil {
		return nil, &UploadError{newRequestError(nil, err)}
	}
	if !resp.ok() {
		slog.Error("onedrive upload rejected",
			"user", target.UserPrincipalName,
			"folder", target.FolderPath,
			"filename", target.Filename,
			"status", resp.StatusCode,
		)
		return nil, &UploadError{newRequestError(resp, nil)}
	}

	item := &DriveItem{Name: target.Filename, Size: int64(len(content))}
	if len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, item); err != nil {
			slog.Warn("could not decode drive item", "error", err)
		}
	}

	slog.Info("uploaded document to onedrive",
		"user", target.UserPrincipalName,
		"folder", target.FolderPath,
		"filename", target.Filename,
		"bytes", len(content),
		"item_id", item.ID,
	)

	return item, nil
}
