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

package order

import (
	"fmt"

	"github.com/microcosm-cc/bluemonday"

	"github.com/Buxxx23/order/internal/models"
)

// textPolicy strips markup from user-entered values before they are
// placed into the HTML mail body.
var textPolicy = bluemonday.StrictPolicy()

// Subject is the mail subject for an order.
func Subject(meta models.OrderMeta) string {
	return fmt.Sprintf("Order %s", meta.OrderNo)
}

// BodyHTML is the HTML mail body announcing an order.
func BodyHTML(meta models.OrderMeta) string {
	return fmt.Sprintf(
		"<p>Hello,</p><p>Please find attached our order <b>%s</b>.</p><p>Best regards,<br>%s</p>",
		textPolicy.Sanitize(meta.OrderNo),
		textPolicy.Sanitize(meta.ContactPerson),
	)
}

// Notification builds the mail that accompanies a rendered order.
func Notification(meta models.OrderMeta, recipients []string, filename string, pdf []byte) models.EmailMessage {
	return models.EmailMessage{
		To:             recipients,
		Subject:        Subject(meta),
		BodyHTML:       BodyHTML(meta),
		AttachmentName: filename,
		Attachment:     pdf,
	}
}
