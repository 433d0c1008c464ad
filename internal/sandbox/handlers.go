package sandbox

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"
	"github.com/vitos/paper_dashboard/internal/domain"
	"go.uber.org/zap"
)

// Handler serves the account-snapshot API.
type Handler struct {
	service *Service
	token   string
	logger  *zap.Logger
}

func NewHandler(service *Service, token string, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		token:   token,
		logger:  logger.Named("sandbox_api"),
	}
}

// Router builds the API router.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(h.authenticate)
		r.Get("/account", h.HandleGetAccount)
		r.Get("/records", h.HandleGetRecords)
		r.Get("/quotes", h.HandleGetQuotes)
		r.Post("/trades", h.HandleExecuteTrade)
	})
	return r
}

func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.token != "" && r.Header.Get("Authorization") != "Bearer "+h.token {
			h.writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HandleGetAccount handles GET /api/account
func (h *Handler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	account, positions, err := h.service.Snapshot(r.Context())
	if err != nil {
		h.logger.Error("Failed to build snapshot", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to load account")
		return
	}
	if positions == nil {
		positions = []domain.Position{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"account":   account,
		"positions": positions,
	})
}

// HandleGetRecords handles GET /api/records?limit=N
func (h *Handler) HandleGetRecords(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := h.service.Records(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list records", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to list records")
		return
	}
	if records == nil {
		records = []domain.TradeRecord{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"records": records})
}

type wireQuote struct {
	CurrentPrice  decimal.Decimal `json:"current_price"`
	ChangePercent decimal.Decimal `json:"change_percent"`
}

// HandleGetQuotes handles GET /api/quotes?symbols=A,B
func (h *Handler) HandleGetQuotes(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("symbols")
	if strings.TrimSpace(raw) == "" {
		h.writeError(w, http.StatusBadRequest, "symbols is required")
		return
	}

	quotes, err := h.service.Quotes(r.Context(), strings.Split(raw, ","))
	if err != nil {
		h.logger.Error("Failed to load quotes", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to load quotes")
		return
	}

	out := make(map[string]wireQuote, len(quotes))
	for symbol, q := range quotes {
		out[symbol] = wireQuote{CurrentPrice: q.CurrentPrice, ChangePercent: q.ChangePercent}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"quotes": out})
}

// HandleExecuteTrade handles POST /api/trades
func (h *Handler) HandleExecuteTrade(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Side = domain.Side(strings.ToUpper(string(req.Side)))

	record, err := h.service.ExecuteTrade(r.Context(), req)
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusCreated, map[string]interface{}{"record": record})
	case errors.Is(err, ErrInvalidTrade):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNoQuote):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInsufficientCapital), errors.Is(err, ErrInsufficientQuantity):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("Failed to execute trade", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to execute trade")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
