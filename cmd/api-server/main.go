package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"smartwealth/pkg/api"
	"smartwealth/pkg/config"
	"smartwealth/pkg/discovery"
	"smartwealth/pkg/earnings"
	"smartwealth/pkg/health"
	"smartwealth/pkg/logger"
	"smartwealth/pkg/monitoring"
	"smartwealth/pkg/quotes"
	"smartwealth/pkg/screener"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	// Optional .env for local development; ignore absence.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty})
	log.Info().Str("environment", cfg.Environment).Msg("starting smartwealth api server")

	registry, err := discovery.NewRegistry()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load source catalog")
	}

	var cache *redis.Client
	if cfg.Redis.Host != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	requestTimeout := cfg.Quotes.RequestTimeout.Std()
	scraper := screener.NewScraper(requestTimeout, log)

	yahoo := quotes.NewYahooSource(requestTimeout, log)
	var fallback discovery.QuoteSource
	if av := quotes.NewAlphaVantageSource(cfg.Quotes.AlphaVantageKey, requestTimeout, log); av != nil {
		fallback = av
	}
	quoteSource := quotes.NewChainSource(yahoo, fallback, log)

	pipeline := discovery.NewPipeline(
		discovery.NewCollector(registry, scraper, log),
		quoteSource,
		discovery.NewFilter(registry.Synonyms()),
		discovery.Options{
			Workers:         cfg.Discovery.Workers,
			EnrichmentDelay: cfg.Discovery.EnrichmentDelay.Std(),
			CandidateFactor: cfg.Discovery.CandidateFactor,
			DefaultLimit:    cfg.Discovery.DefaultLimit,
			MaxLimit:        cfg.Discovery.MaxLimit,
		},
		log,
	)

	calendar := earnings.NewCalendar(requestTimeout, cache, log)
	metrics := monitoring.NewMetricsCollector()

	checker := health.NewChecker()
	checker.Register("quote_source", func(ctx context.Context) error {
		_, err := quoteSource.GetQuote(ctx, "AAPL")
		return err
	})
	if cache != nil {
		checker.Register("redis", func(ctx context.Context) error {
			return cache.Ping(ctx).Err()
		})
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	api.SetupRoutes(router, api.NewHandler(pipeline, calendar, checker, metrics, log), metrics, log)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout.Std(),
		WriteTimeout: cfg.Server.Timeout.Std(),
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if cache != nil {
		_ = cache.Close()
	}
	log.Info().Msg("server stopped")
}
