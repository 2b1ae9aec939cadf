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
	"fmt"
	"net/http"
	"strings"
)

// RequestError holds what Graph said about a failed call. StatusCode is
// zero when the request never produced a response. The error text carries
// the response body as returned.
type RequestError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
	Err        error
}

func (e *RequestError) describe(op string) string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s failed: %v", op, e.Err)
	}
	detail := strings.TrimSpace(e.Body)
	if detail == "" {
		detail = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s failed (%d): %s", op, e.StatusCode, detail)
}

// UploadError reports a failed OneDrive upload.
type UploadError struct {
	RequestError
}

func (e *UploadError) Error() string { return e.describe("OneDrive upload") }

func (e *UploadError) Unwrap() error { return e.Err }

// MailError reports a failed sendMail call.
type MailError struct {
	RequestError
}

func (e *MailError) Error() string { return e.describe("Email send") }

func (e *MailError) Unwrap() error { return e.Err }

// newRequestError builds the shared error detail from a response or a
// transport failure.
func newRequestError(resp *response, err error) RequestError {
	if resp == nil {
		return RequestError{Err: err}
	}
	code, msg := parseError(resp.Body)
	return RequestError{
		StatusCode: resp.StatusCode,
		Code:       code,
		Message:    msg,
		Body:       string(resp.Body),
		Err:        err,
	}
}
