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
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Buxxx23/order/internal/models"
)

// sendMailPayload mirrors the Graph sendMail request body.
type sendMailPayload struct {
	Message         mailMessage `json:"message"`
	SaveToSentItems bool        `json:"saveToSentItems"`
}

type mailMessage struct {
	Subject      string           `json:"subject"`
	Body         mailBody         `json:"body"`
	ToRecipients []mailRecipient  `json:"toRecipients"`
	Attachments  []fileAttachment `json:"attachments,omitempty"`
}

type mailBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type mailRecipient struct {
	EmailAddress mailAddress `json:"emailAddress"`
}

type mailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type fileAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
}

// buildSendMail converts an EmailMessage into the Graph payload. The
// attachment is base64-encoded and omitted when there are no bytes.
func buildSendMail(msg models.EmailMessage) sendMailPayload {
	to := make([]mailRecipient, 0, len(msg.To))
	for _, addr := range msg.To {
		to = append(to, mailRecipient{EmailAddress: mailAddress{Address: addr}})
	}

	payload := sendMailPayload{
		Message: mailMessage{
			Subject:      msg.Subject,
			Body:         mailBody{ContentType: "HTML", Content: msg.BodyHTML},
			ToRecipients: to,
		},
		SaveToSentItems: true,
	}

	if len(msg.Attachment) > 0 {
		name := msg.AttachmentName
		if name == "" {
			name = "order.pdf"
		}
		payload.Message.Attachments = []fileAttachment{{
			ODataType:    "#microsoft.graph.fileAttachment",
			Name:         name,
			ContentType:  "application/pdf",
			ContentBytes: base64.StdEncoding.EncodeToString(msg.Attachment),
		}}
	}

	return payload
}

// SendMail sends msg from the sender's mailbox. Graph answers 202 Accepted
// on success.
func (c *Client) SendMail(ctx context.Context, token, senderUPN string, msg models.EmailMessage) error {
	if len(msg.To) == 0 {
		return &MailError{RequestError{Err: fmt.Errorf("no recipients")}}
	}

	body, err := json.Marshal(buildSendMail(msg))
	if err != nil {
		return &MailError{RequestError{Err: fmt.Errorf("marshal sendMail payload: %w", err)}}
	}

	resp, err := c.do(ctx, http.MethodPost, c.userPath(senderUPN)+"/sendMail", token, "application/json", body)
	if err != nil {
		return &MailError{newRequestError(nil, err)}
	}
	if !resp.ok() {
		slog.Error("sendMail rejected",
			"sender", senderUPN,
			"recipients", len(msg.To),
			"status", resp.StatusCode,
		)
		return &MailError{newRequestError(resp, nil)}
	}

	slog.Info("sent order email",
		"sender", senderUPN,
		"recipients", len(msg.To),
		"subject", msg.Subject,
		"attachment_bytes", len(msg.Attachment),
	)

	return nil
}
