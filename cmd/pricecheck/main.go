package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/maxicourses/price-scraper/internal/browser"
	"github.com/maxicourses/price-scraper/internal/config"
	"github.com/maxicourses/price-scraper/internal/parser"
	"github.com/maxicourses/price-scraper/internal/pipeline"
	"github.com/maxicourses/price-scraper/internal/queue"
	"github.com/maxicourses/price-scraper/internal/storage"
	"github.com/maxicourses/price-scraper/pkg/logger"
)

// pricecheck looks up one product across store pages and prints the
// per-store reports as JSON.
func main() {
	var (
		ean            = flag.String("ean", "", "product EAN to look up (required)")
		auchanURL      = flag.String("auchan", "", "auchan.fr product page URL")
		intermarcheURL = flag.String("intermarche", "", "intermarche.fr product page URL")
		catalogPath    = flag.String("catalog", "", "JSON catalog of product page URLs per EAN")
		timeout        = flag.Duration("timeout", 5*time.Minute, "overall run timeout")
		pretty         = flag.Bool("pretty", false, "indent JSON output")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	if *ean == "" {
		fmt.Fprintln(os.Stderr, "usage: pricecheck -ean <EAN> [-auchan URL] [-intermarche URL]")
		os.Exit(2)
	}

	urls := map[string]string{}
	if *catalogPath != "" {
		cat, err := storage.NewCatalog(*catalogPath)
		if err != nil {
			log.Error("failed to load catalog", "path", *catalogPath, "error", err)
			os.Exit(1)
		}
		if known := cat.URLs(*ean); known != nil {
			urls = known
		}
	}
	// Explicit flags win over catalogued URLs.
	if *auchanURL != "" {
		urls["auchan"] = *auchanURL
	}
	if *intermarcheURL != "" {
		urls["intermarche"] = *intermarcheURL
	}

	tasks := buildTasks(*ean, urls)
	if len(tasks) == 0 {
		fmt.Fprintln(os.Stderr, "no store URLs known for this EAN; pass -auchan/-intermarche or -catalog")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	b, err := browser.New(browser.OptionsFromConfig(cfg.Browser))
	if err != nil {
		log.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	extractor := parser.NewPriceExtractor(cfg.Extractor)
	runner := pipeline.NewRunner(b, extractor, cfg.Scraper, log)

	q := queue.NewInMemoryQueue(cfg.Queue.MaxSize)
	for _, task := range tasks {
		if err := q.Push(task); err != nil {
			log.Error("failed to enqueue task", "store", task.Store, "error", err)
		}
	}
	q.Close()

	results := drain(ctx, q, runner)

	output := struct {
		EAN      string                 `json:"ean"`
		Results  []pipeline.StoreReport `json:"results"`
		Cheapest *pipeline.StoreReport  `json:"cheapest,omitempty"`
	}{
		EAN:      *ean,
		Results:  results,
		Cheapest: pipeline.Cheapest(results),
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(output); err != nil {
		log.Error("failed to encode output", "error", err)
		os.Exit(1)
	}
}

func buildTasks(ean string, urls map[string]string) []*queue.Task {
	stores := make([]string, 0, len(urls))
	for store := range urls {
		stores = append(stores, store)
	}
	sort.Strings(stores)

	var tasks []*queue.Task
	for _, store := range stores {
		if urls[store] == "" {
			continue
		}
		tasks = append(tasks, &queue.Task{
			ID:        uuid.NewString(),
			EAN:       ean,
			Store:     store,
			URL:       urls[store],
			CreatedAt: time.Now(),
		})
	}

	return tasks
}

// drain pops queued lookups one at a time; the runner's rate limiter paces
// the fetches between stores.
func drain(ctx context.Context, q queue.Queue, runner *pipeline.Runner) []pipeline.StoreReport {
	var results []pipeline.StoreReport

	for {
		task, err := q.Pop(ctx)
		if err != nil {
			if !errors.Is(err, queue.ErrQueueClosed) && !errors.Is(err, context.DeadlineExceeded) {
				slog.Error("failed to pop task", "error", err)
			}
			return results
		}

		reports := runner.Lookup(ctx, task.EAN, []pipeline.Target{
			{Store: task.Store, URL: task.URL},
		})
		results = append(results, reports...)
	}
}
