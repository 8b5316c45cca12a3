package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/maxicourses/price-scraper/internal/config"
	"github.com/maxicourses/price-scraper/internal/models"
	"github.com/maxicourses/price-scraper/internal/parser"
	"github.com/maxicourses/price-scraper/internal/ratelimit"
)

// PageProvider renders one product page to its final markup. The browser
// package is the production implementation; tests use a stub.
type PageProvider interface {
	FetchPage(url string) (models.RawPage, error)
}

// ReportStore persists finished reports. Optional; a nil store means
// reports only flow to the caller.
type ReportStore interface {
	Save(ctx context.Context, ean, store string, rep models.Report) error
}

// Target names one store page to extract for an EAN.
type Target struct {
	Store string
	URL   string
}

// StoreReport pairs a finished report with the store it came from.
type StoreReport struct {
	Store  string        `json:"store"`
	Report models.Report `json:"report"`
}

// Runner drives the fetch-extract-report sequence across stores for one
// product, pacing fetches through the adaptive rate limiter.
type Runner struct {
	provider  PageProvider
	extractor *parser.PriceExtractor
	limiter   *ratelimit.AdaptiveRateLimiter
	reports   ReportStore
	logger    *slog.Logger
	cfg       config.ScraperConfig
}

func NewRunner(provider PageProvider, extractor *parser.PriceExtractor, cfg config.ScraperConfig, logger *slog.Logger) *Runner {
	return &Runner{
		provider:  provider,
		extractor: extractor,
		limiter:   ratelimit.NewAdaptiveRateLimiter(cfg.RateLimitMin, cfg.RateLimitMax),
		logger:    logger.With("component", "pipeline"),
		cfg:       cfg,
	}
}

// WithReportStore enables persistence of every finished report.
func (r *Runner) WithReportStore(store ReportStore) *Runner {
	r.reports = store
	return r
}

// Lookup extracts the product's price at every target store, in order. A
// failing store never aborts the rest; its report carries the failure status.
func (r *Runner) Lookup(ctx context.Context, ean string, targets []Target) []StoreReport {
	results := make([]StoreReport, 0, len(targets))

	for _, target := range targets {
		rep := r.lookupOne(ctx, ean, target)
		results = append(results, StoreReport{Store: target.Store, Report: rep})

		if r.reports != nil {
			if err := r.reports.Save(ctx, ean, target.Store, rep); err != nil {
				r.logger.Error("failed to persist report",
					"ean", ean, "store", target.Store, "error", err)
			}
		}
	}

	return results
}

func (r *Runner) lookupOne(ctx context.Context, ean string, target Target) models.Report {
	if target.URL == "" {
		return models.Report{Status: models.StatusNoResults}
	}

	log := r.logger.With("ean", ean, "store", target.Store)

	page, err := r.fetch(ctx, target.URL)
	if err != nil {
		log.Error("fetch failed", "error", err)
		return failureReport(err, target.URL)
	}

	result := r.extractor.Extract(page, ean)
	rep := models.BuildReport(&result, target.URL)

	if rep.Status != models.StatusOK {
		r.dumpMarkup(target.Store, ean, page.Markup)
	}

	// The page rendered, but its identifier does not match the product we
	// asked for. Keep the price; flag the uncertainty.
	if rep.Status == models.StatusOK && rep.MatchedEAN != ean {
		rep.Note = "EAN not confirmed on page"
	}

	log.Info("extraction finished",
		"status", rep.Status,
		"price", rep.Price,
		"unit_price", rep.UnitPrice)

	return rep
}

// fetch paces the request and retries transient failures. Bot-protected
// markup counts as a failure for pacing purposes but is still returned, so
// the report can say what happened.
func (r *Runner) fetch(ctx context.Context, url string) (models.RawPage, error) {
	var lastErr error

	attempts := r.cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return models.RawPage{}, err
		}

		page, err := r.provider.FetchPage(url)
		if err == nil {
			if parser.IsBotWall(page.Markup) {
				r.limiter.RecordError()
			} else {
				r.limiter.RecordSuccess()
			}
			return page, nil
		}

		lastErr = err
		r.limiter.RecordError()

		if ctx.Err() != nil {
			return models.RawPage{}, ctx.Err()
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return models.RawPage{}, ctx.Err()
			case <-time.After(r.cfg.RetryDelay):
			}
		}
	}

	return models.RawPage{}, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

func (r *Runner) dumpMarkup(store, ean, markup string) {
	if r.cfg.DebugDumpDir == "" {
		return
	}

	if err := os.MkdirAll(r.cfg.DebugDumpDir, 0o755); err != nil {
		r.logger.Warn("failed to create debug dump dir", "dir", r.cfg.DebugDumpDir, "error", err)
		return
	}

	name := fmt.Sprintf("%s_%s_%d.html", store, ean, time.Now().Unix())
	path := filepath.Join(r.cfg.DebugDumpDir, name)
	if err := os.WriteFile(path, []byte(markup), 0o644); err != nil {
		r.logger.Warn("failed to write debug dump", "path", path, "error", err)
	}
}

func failureReport(err error, url string) models.Report {
	status := models.StatusError
	if errors.Is(err, context.DeadlineExceeded) {
		status = models.StatusTimeout
	}
	return models.Report{Status: status, URL: url}
}

// Cheapest returns the store with the lowest successfully extracted price,
// or nil when no store produced one.
func Cheapest(results []StoreReport) *StoreReport {
	var best *StoreReport
	var bestPrice float64

	for i := range results {
		rep := results[i].Report
		if rep.Status != models.StatusOK {
			continue
		}
		price, ok := parseAmount(rep.Price)
		if !ok {
			continue
		}
		if best == nil || price < bestPrice {
			best = &results[i]
			bestPrice = price
		}
	}

	return best
}

func parseAmount(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
