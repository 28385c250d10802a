package httpserver

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"flex_reviews/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("").Funcs(template.FuncMap{
	"repeat": func(s string, n int) string {
		if n <= 0 {
			return ""
		}
		return strings.Repeat(s, n)
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format("2 Jan 2006")
	},
	"deref": func(f *float64) float64 {
		if f == nil {
			return 0
		}
		return *f
	},
}).ParseFS(templateFS, "templates/*.html"))

// renderProperty buffers the page so a template error still yields a clean 500.
func renderProperty(w http.ResponseWriter, page domain.PublicPage) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, "property.html", page); err != nil {
		log.Error().Err(err).Str("listing", page.ListingID).Msg("render property page failed")
		writeProblem(w, http.StatusInternalServerError, "Render failed", "")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Error().Err(err).Msg("write property page failed")
	}
}
