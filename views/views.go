// Package views renders the server-side HTML pages.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/Dosada05/association-portal/guard"
	"github.com/Dosada05/association-portal/models"
)

//go:embed templates/*.html
var files embed.FS

const (
	PageLogin     = "login.html"
	PageDashboard = "dashboard.html"
	PageAdmin     = "admin.html"
	PageError     = "error.html"
)

var notices = map[string]string{
	string(guard.NoticeAdminRequired): "Admin access is required for that page.",
	string(guard.NoticeSignedOut):     "You have been signed out.",
}

// NoticeText turns a notice code into the sentence shown to the user.
// Unknown codes are shown as they are.
func NoticeText(code string) string {
	if text, ok := notices[code]; ok {
		return text
	}
	return code
}

type LoginPage struct {
	Email  string
	Error  string
	Notice string
}

type DashboardPage struct {
	Email  string
	Admin  bool
	Notice string
	State  models.DashboardState
}

type AdminPage struct {
	Email string
	State models.AdminDashboardState
}

// ErrorPage is shown when a page cannot be served; Retry links back to it.
type ErrorPage struct {
	Status  int
	Message string
	Retry   string
}

type Renderer struct {
	pages map[string]*template.Template
}

func New() (*Renderer, error) {
	funcs := template.FuncMap{"notice": NoticeText}
	pages := make(map[string]*template.Template)
	for _, name := range []string{PageLogin, PageDashboard, PageAdmin, PageError} {
		t, err := template.New(name).Funcs(funcs).ParseFS(files, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		pages[name] = t
	}
	return &Renderer{pages: pages}, nil
}

// Render executes page into a buffer first so a template error never
// leaves a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data any) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", page, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
