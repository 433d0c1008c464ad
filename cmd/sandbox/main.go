package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitos/paper_dashboard/internal/config"
	"github.com/vitos/paper_dashboard/internal/domain"
	"github.com/vitos/paper_dashboard/internal/infrastructure/logger"
	"github.com/vitos/paper_dashboard/internal/infrastructure/storage"
	"github.com/vitos/paper_dashboard/internal/sandbox"
	"github.com/vitos/paper_dashboard/internal/usecase"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	store, err := storage.NewSQLiteStore(cfg.Sandbox.DBPath)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	capital, err := decimal.NewFromString(cfg.Sandbox.InitialCapital)
	if err != nil {
		log.Fatal("Invalid initial capital", zap.String("value", cfg.Sandbox.InitialCapital), zap.Error(err))
	}

	var seeds []domain.Quote
	for _, q := range cfg.Sandbox.Quotes {
		price, err := decimal.NewFromString(q.Price)
		if err != nil {
			log.Fatal("Invalid seed price", zap.String("symbol", q.Symbol), zap.Error(err))
		}
		seeds = append(seeds, domain.Quote{Symbol: q.Symbol, CurrentPrice: price})
	}

	calendar := usecase.LoadMarketCalendar(cfg.Market.Timezone)
	svc := sandbox.NewService(store, calendar, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Seed(ctx, capital, seeds); err != nil {
		log.Fatal("Failed to seed sandbox", zap.Error(err))
	}

	scheduler, err := svc.Start(ctx, cfg.Sandbox.DriftSchedule)
	if err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}

	handler := sandbox.NewHandler(svc, cfg.API.Token, log)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Sandbox.Port),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Starting sandbox API", zap.String("addr", server.Addr), zap.String("db", cfg.Sandbox.DBPath))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	<-scheduler.Stop().Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
}
