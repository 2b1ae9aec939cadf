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

// Package models defines the data structures shared across the order desk.
package models

import "strings"

// Credentials identifies the Entra ID application used for Graph calls.
type Credentials struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// Complete reports whether all three credential fields are set.
func (c Credentials) Complete() bool {
	return strings.TrimSpace(c.TenantID) != "" &&
		strings.TrimSpace(c.ClientID) != "" &&
		strings.TrimSpace(c.ClientSecret) != ""
}

// GraphSettings carries everything needed to reach OneDrive and sendMail
// on behalf of one mailbox.
type GraphSettings struct {
	Credentials Credentials `yaml:",inline"`
	UserUPN     string      `yaml:"user_upn"`
	Folder      string      `yaml:"folder"`
	Recipients  []string    `yaml:"recipients"`
}

// Ready reports whether the settings are sufficient to authenticate and
// address a mailbox.
func (g GraphSettings) Ready() bool {
	return g.Credentials.Complete() && strings.TrimSpace(g.UserUPN) != ""
}

// UploadTarget is where a rendered document lands in OneDrive.
type UploadTarget struct {
	UserPrincipalName string
	FolderPath        string
	Filename          string
}

// EmailMessage is a single outgoing notification with an optional PDF
// attachment.
type EmailMessage struct {
	To             []string
	Subject        string
	BodyHTML       string
	AttachmentName string
	Attachment     []byte
}

// ParseRecipients splits a comma-separated address list and drops empty
// entries.
func ParseRecipients(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
