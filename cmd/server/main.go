package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/maxicourses/price-scraper/internal/api"
	"github.com/maxicourses/price-scraper/internal/browser"
	"github.com/maxicourses/price-scraper/internal/config"
	"github.com/maxicourses/price-scraper/internal/database"
	"github.com/maxicourses/price-scraper/internal/parser"
	"github.com/maxicourses/price-scraper/internal/pipeline"
	"github.com/maxicourses/price-scraper/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	extractor := parser.NewPriceExtractor(cfg.Extractor)

	// Persistence is optional: without it the service still extracts, it
	// just does not keep history or publish events.
	var (
		reports *database.ReportRepository
		relay   *database.Relay
	)
	if cfg.Database.Enabled {
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		reports = database.NewReportRepository(db)

		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}

		relay = database.NewRelay(db, redisClient, log, database.RelayConfig{
			PollInterval: 5 * time.Second,
			BatchSize:    100,
		})
		go func() {
			if err := relay.Start(ctx); err != nil && err != context.Canceled {
				log.Error("relay stopped with error", "error", err)
			}
		}()
	}

	var runner *pipeline.Runner
	if cfg.Browser.Enabled {
		b, err := browser.New(browser.OptionsFromConfig(cfg.Browser))
		if err != nil {
			log.Error("failed to initialize browser", "error", err)
			os.Exit(1)
		}
		defer b.Close()

		runner = pipeline.NewRunner(b, extractor, cfg.Scraper, log)
		if reports != nil {
			runner = runner.WithReportStore(reports)
		}
	}

	handlers := api.NewHandlers(extractor, runner, reportFinder(reports), log)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		health := map[string]interface{}{
			"status":  "ok",
			"browser": cfg.Browser.Enabled,
		}

		status := http.StatusOK
		if relay != nil {
			pendingCount, _ := relay.GetPendingCount(req.Context())
			deadLetterCount, _ := relay.GetDeadLetterCount(req.Context())

			health["outbox"] = map[string]interface{}{
				"pending":     pendingCount,
				"dead_letter": deadLetterCount,
			}

			if pendingCount > 1000 {
				health["status"] = "warning"
				health["message"] = "High number of pending outbox events"
			}
			if deadLetterCount > 100 {
				health["status"] = "error"
				health["message"] = "High number of dead letter events"
				status = http.StatusServiceUnavailable
			}
		}

		w.WriteHeader(status)
		json.NewEncoder(w).Encode(health)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/extract", handlers.ExtractPrice)
		r.Post("/scrape", handlers.ScrapeProduct)
		r.Get("/reports/{ean}", handlers.GetReports)
	})

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	}()

	log.Info("server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

// reportFinder keeps the handlers' optional dependency nil when persistence
// is off; a typed nil pointer would defeat the handlers' nil check.
func reportFinder(reports *database.ReportRepository) api.ReportFinder {
	if reports == nil {
		return nil
	}
	return reports
}
