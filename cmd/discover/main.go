package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"smartwealth/pkg/discovery"
	"smartwealth/pkg/logger"
	"smartwealth/pkg/quotes"
	"smartwealth/pkg/screener"
)

// One-shot discovery from the command line, for poking at the pipeline
// without running the server.
func main() {
	sectorsFlag := flag.String("sectors", "", "comma-separated sector names")
	subsectorsFlag := flag.String("subsectors", "", "comma-separated subsector names")
	limit := flag.Int("limit", 20, "maximum companies to return")
	stream := flag.Bool("stream", false, "print progress as companies are found")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall run timeout")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	_ = godotenv.Load()

	req := discovery.Request{
		Sectors:    splitList(*sectorsFlag),
		Subsectors: splitList(*subsectorsFlag),
		Limit:      *limit,
	}
	if len(req.Sectors) == 0 && len(req.Subsectors) == 0 {
		fmt.Fprintln(os.Stderr, "at least one of -sectors or -subsectors is required")
		os.Exit(2)
	}

	log := logger.New(logger.Config{Level: *logLevel, Pretty: true})

	registry, err := discovery.NewRegistry()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load source catalog")
	}

	requestTimeout := 30 * time.Second
	yahoo := quotes.NewYahooSource(requestTimeout, log)
	var fallback discovery.QuoteSource
	if av := quotes.NewAlphaVantageSource(os.Getenv("ALPHA_VANTAGE_API_KEY"), requestTimeout, log); av != nil {
		fallback = av
	}

	pipeline := discovery.NewPipeline(
		discovery.NewCollector(registry, screener.NewScraper(requestTimeout, log), log),
		quotes.NewChainSource(yahoo, fallback, log),
		discovery.NewFilter(registry.Synonyms()),
		discovery.Options{},
		log,
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *stream {
		runStreaming(ctx, pipeline, req)
		return
	}

	result, err := pipeline.Discover(ctx, req)
	if err != nil {
		log.Fatal().Err(err).Msg("discovery failed")
	}

	printTable(result.Records())
	fmt.Printf("\n%d returned, %d considered, %d rejected\n",
		len(result.Matches), result.Stats.Considered, result.Stats.Rejected)
}

func runStreaming(ctx context.Context, pipeline *discovery.Pipeline, req discovery.Request) {
	for event := range pipeline.DiscoverStream(ctx, req) {
		switch event.Status {
		case discovery.EventStarted:
			fmt.Println(event.Message)
		case discovery.EventProgress:
			fmt.Printf("[%d/%d] %-6s %-30s %14s\n",
				event.Index, event.Total, event.Company.Ticker,
				truncate(event.Company.Name, 30), formatCap(event.Company.MarketCap))
		case discovery.EventCompleted:
			fmt.Printf("\ndone: %d companies\n", event.Total)
		case discovery.EventError:
			fmt.Fprintln(os.Stderr, "error:", event.Error)
			os.Exit(1)
		}
	}
}

func printTable(records []*discovery.QuoteRecord) {
	fmt.Printf("%-6s %-30s %10s %8s %14s %s\n",
		"TICKER", "NAME", "PRICE", "CHG%", "MKT CAP", "SECTOR")
	for _, r := range records {
		fmt.Printf("%-6s %-30s %10.2f %7.2f%% %14s %s\n",
			r.Ticker, truncate(r.Name, 30), r.CurrentPrice, r.PriceChangePct,
			formatCap(r.MarketCap), r.Sector)
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

func formatCap(v float64) string {
	switch {
	case v >= 1e12:
		return fmt.Sprintf("%.2fT", v/1e12)
	case v >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}
