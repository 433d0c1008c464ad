package web

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type windowView struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

type marketView struct {
	TradingTime    bool         `json:"trading_time"`
	Timezone       string       `json:"timezone"`
	Now            time.Time    `json:"now"`
	Windows        []windowView `json:"windows"`
	PollIntervalMs int64        `json:"poll_interval_ms"`
}

func (s *Server) handleDashboardJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dashboard.View())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.dashboard.Refresh(r.Context()); err != nil {
		s.logger.Error("Manual refresh failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.dashboard.View())
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	now := time.Now().In(s.calendar.Location())
	view := s.dashboard.View()

	var windows []windowView
	for _, win := range s.calendar.Windows() {
		windows = append(windows, windowView{
			Open:  minuteClock(win.OpenMinute),
			Close: minuteClock(win.CloseMinute),
		})
	}

	writeJSON(w, http.StatusOK, marketView{
		TradingTime:    s.calendar.IsTradingTime(now),
		Timezone:       s.calendar.Location().String(),
		Now:            now,
		Windows:        windows,
		PollIntervalMs: view.PollIntervalMs,
	})
}

func minuteClock(minute int) string {
	return time.Date(0, 1, 1, minute/60, minute%60, 0, 0, time.UTC).Format("15:04")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
