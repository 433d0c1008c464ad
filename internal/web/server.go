package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/vitos/paper_dashboard/internal/usecase"
	"go.uber.org/zap"
)

type Server struct {
	router    chi.Router
	server    *http.Server
	dashboard *usecase.DashboardService
	calendar  *usecase.MarketCalendar
	hub       *Hub
	logger    *zap.Logger
}

func NewServer(
	port int,
	allowedOrigins []string,
	dashboard *usecase.DashboardService,
	calendar *usecase.MarketCalendar,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		dashboard: dashboard,
		calendar:  calendar,
		hub:       NewHub(logger),
		logger:    logger.Named("web"),
	}
	s.routes(allowedOrigins)
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	dashboard.Subscribe(s.hub.Broadcast)
	return s
}

func (s *Server) routes(allowedOrigins []string) {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.logRequests)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Dashboard page
	s.router.Get("/", s.handleDashboard)
	s.router.Get("/health", s.handleHealth)

	// Live updates
	s.router.Get("/ws", s.handleWebsocket)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Get("/dashboard", s.handleDashboardJSON)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/market", s.handleMarket)
	})
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.server.Shutdown(ctx)
}
