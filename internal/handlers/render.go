package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/ahsanfayaz52/noteboard/internal/models"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = map[string]*template.Template{
	"login":     parsePage("templates/login.html"),
	"dashboard": parsePage("templates/dashboard.html"),
	"register":  parsePage("templates/register.html"),
	"confirm":   parsePage("templates/confirm.html"),
}

func parsePage(file string) *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/base.html", file))
}

type loginData struct {
	Username string
	Error    string
	Notice   string

	// Unconfirmed links the user to the confirmation page.
	Unconfirmed bool
}

type registerData struct {
	Username string
	Email    string
	Error    string
}

type confirmData struct {
	Username string
	Error    string
	Notice   string
}

type dashboardData struct {
	Username string
	Notes    []models.Note
	HasMore  bool
	Draft    string
	Error    string
}

// render writes a page with status. It renders into a buffer first so a
// template error never leaves a half-written page behind.
func render(w http.ResponseWriter, log *zap.Logger, page string, status int, data interface{}) {
	var buf bytes.Buffer
	if err := pages[page].ExecuteTemplate(&buf, "base", data); err != nil {
		log.Error("render template", zap.String("page", page), zap.Error(err))
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
