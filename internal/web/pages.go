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

package web

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/Buxxx23/order/internal/order"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"eur":     order.FormatEUR,
	"percent": order.FormatPercent,
	"article": order.Article,
	"isodate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(dateLayout)
	},
	"inc": func(i int) int { return i + 1 },
}

type pages struct {
	byName map[string]*template.Template
}

func mustLoadPages() *pages {
	p := &pages{byName: make(map[string]*template.Template)}
	for _, name := range []string{"index", "result", "history", "message"} {
		p.byName[name] = template.Must(template.New("layout.html").Funcs(funcs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html"))
	}
	return p
}

// render executes a page into a buffer first so a template failure never
// produces a half-written response.
func (p *pages) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := p.byName[name].Execute(&buf, data); err != nil {
		slog.Error("render page failed", "page", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

type messageView struct {
	Title   string
	Message string
}

func (p *pages) message(w http.ResponseWriter, status int, title, msg string) {
	p.render(w, status, "message", messageView{Title: title, Message: msg})
}
