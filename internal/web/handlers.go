package web

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"pct":   func(d decimal.Decimal) string { return d.StringFixed(2) + "%" },
	"signed": func(d decimal.Decimal) string {
		if d.IsPositive() {
			return "up"
		}
		if d.IsNegative() {
			return "down"
		}
		return ""
	},
	"clock": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("15:04:05")
	},
}).ParseFS(templateFS, "templates/*.html"))

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"View":     s.dashboard.View(),
		"Timezone": s.calendar.Location().String(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		s.logger.Error("Template error", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	s.hub.ServeWS(w, r, s.dashboard.View())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
	})
}
