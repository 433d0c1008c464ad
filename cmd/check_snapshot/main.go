package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vitos/paper_dashboard/internal/config"
	"github.com/vitos/paper_dashboard/internal/infrastructure/snapshotapi"
	"github.com/vitos/paper_dashboard/internal/usecase"
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

	fmt.Printf("Checking snapshot API...\n")
	fmt.Printf("Endpoint: %s\n", cfg.API.URL)

	client := snapshotapi.NewClient(cfg.API.URL, cfg.API.Token, cfg.API.Timeout())
	calendar := usecase.LoadMarketCalendar(cfg.Market.Timezone)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now()
	fmt.Printf("Market: %s, trading=%v\n", calendar.Location(), calendar.IsTradingTime(now))

	// 2. Account Snapshot
	account, positions, err := client.GetAccount(ctx)
	if err != nil {
		fmt.Printf("❌ Failed to get account: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Account %q: cash %s, initial %s, %d positions\n",
		account.Name, account.CurrentCapital.StringFixed(2), account.InitialCapital.StringFixed(2), len(positions))

	// 3. Quotes
	var symbols []string
	for _, p := range positions {
		if p.Quantity > 0 {
			symbols = append(symbols, p.Symbol)
		}
	}
	cache := usecase.NewQuoteCache()
	if len(symbols) > 0 {
		quotes, err := client.GetQuotes(ctx, symbols)
		if err != nil {
			fmt.Printf("❌ Failed to get quotes: %v\n", err)
		} else {
			fmt.Printf("✅ Got %d quotes\n", len(quotes))
			cache.Merge(quotes)
		}
	}

	// 4. Valuation
	for _, p := range usecase.DisplayPositions(positions, cache) {
		live := " "
		if p.Live {
			live = "*"
		}
		fmt.Printf("%s %-10s qty=%-6d cost=%-10s price=%-10s value=%-12s pnl=%s (%s%%)\n",
			live, p.Symbol, p.Quantity, p.CostPrice.StringFixed(2), p.CurrentPrice.StringFixed(2),
			p.MarketValue.StringFixed(2), p.Profit.StringFixed(2), p.ProfitPct.StringFixed(2))
	}

	v := usecase.PortfolioValuation(positions, cache, *account)
	fmt.Printf("Position value: %s\n", v.PositionValue.StringFixed(2))
	fmt.Printf("Total assets:   %s\n", v.TotalAssets.StringFixed(2))
	fmt.Printf("Unrealized P&L: %s\n", v.UnrealizedProfit.StringFixed(2))
	fmt.Printf("Total return:   %s%%\n", v.TotalReturnPct.StringFixed(2))

	// 5. Trade Records
	records, err := client.GetTradeRecords(ctx, 5)
	if err != nil {
		fmt.Printf("❌ Failed to get records: %v\n", err)
		return
	}
	fmt.Printf("✅ Last %d records\n", len(records))
	for _, r := range records {
		fmt.Printf("  %s %-4s %-10s %d @ %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"), r.Side, r.Symbol, r.Quantity, r.Price.StringFixed(2))
	}
}
