package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitos/paper_dashboard/internal/config"
	"github.com/vitos/paper_dashboard/internal/infrastructure/logger"
	"github.com/vitos/paper_dashboard/internal/infrastructure/snapshotapi"
	"github.com/vitos/paper_dashboard/internal/usecase"
	"github.com/vitos/paper_dashboard/internal/web"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	var log *zap.Logger
	if cfg.Logging.File.Path != "" {
		log, err = logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level)
	} else {
		log, err = logger.NewLogger(cfg.Logging.Level)
	}
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Browsers get plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	// 3. Init Snapshot Client
	client := snapshotapi.NewClient(cfg.API.URL, cfg.API.Token, cfg.API.Timeout())

	// 4. Init Services
	calendar := usecase.LoadMarketCalendar(cfg.Market.Timezone)
	cache := usecase.NewQuoteCache()
	poller := usecase.NewQuotePoller(client, cache, calendar, usecase.PollerConfig{
		TradingInterval: cfg.Polling.TradingInterval(),
		IdleInterval:    cfg.Polling.IdleInterval(),
		RequestTimeout:  cfg.Polling.RequestTimeout(),
		CadenceSchedule: cfg.Polling.CadenceSchedule,
	}, log)
	dashboard := usecase.NewDashboardService(client, poller, cache, calendar, log)
	dashboard.SetRecordLimit(cfg.Polling.RecordLimit)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// 5. Init Web Server
	server := web.NewServer(cfg.Server.Port, cfg.Server.AllowedOrigins, dashboard, calendar, log)

	// 6. Start Polling
	dashboard.Start(ctx, cfg.Polling.SnapshotRefresh())
	log.Info("Dashboard started",
		zap.String("api", cfg.API.URL),
		zap.String("timezone", calendar.Location().String()),
	)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 7. Wait for Shutdown
	<-stop

	log.Info("Shutting down...")
	cancel()
	poller.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
}
