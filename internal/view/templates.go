package view

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
	"github.com/odyssey-erp/odyssey-pos/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flashes     []shared.FlashMessage
	CurrentPath string
	Identity    *shared.Identity
	Data        any
}

var moneyPrinter = message.NewPrinter(language.English)

// FormatMoney renders an amount with grouping and two decimals.
func FormatMoney(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return moneyPrinter.Sprint(number.Decimal(f, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"money":       FormatMoney,
		"currentYear": func() int { return time.Now().Year() },
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}

// RenderString executes a named template into a string, used for documents
// that leave the HTTP response path such as PDF exports.
func (e *Engine) RenderString(name string, data TemplateData) (string, error) {
	if e == nil {
		return "", fmt.Errorf("template engine not initialised")
	}
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// NewPage assembles TemplateData for r: it ensures a CSRF token, drains
// pending flashes and attaches the request identity.
func NewPage(r *http.Request, csrf *shared.CSRFManager, title string, data any) TemplateData {
	ctx := r.Context()
	sess := shared.SessionFromContext(ctx)
	page := TemplateData{Title: title, CurrentPath: r.URL.Path, Data: data}
	if sess != nil {
		if csrf != nil {
			page.CSRFToken, _ = csrf.EnsureToken(ctx, sess)
		}
		page.Flashes = sess.PopFlashes()
	}
	if id, ok := shared.IdentityFromContext(ctx); ok {
		page.Identity = &id
	}
	return page
}
