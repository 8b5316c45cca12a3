package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maxicourses/price-scraper/internal/database"
	"github.com/maxicourses/price-scraper/internal/models"
	"github.com/maxicourses/price-scraper/internal/parser"
	"github.com/maxicourses/price-scraper/internal/pipeline"
)

// ReportFinder reads back persisted reports. Implemented by
// database.ReportRepository; nil when persistence is disabled.
type ReportFinder interface {
	LatestByEAN(ctx context.Context, ean string) ([]*database.PriceReport, error)
}

type Handlers struct {
	extractor *parser.PriceExtractor
	runner    *pipeline.Runner
	reports   ReportFinder
	logger    *slog.Logger
}

// NewHandlers wires the extraction engine into HTTP. runner and reports are
// optional; endpoints that need them answer 503 when absent.
func NewHandlers(extractor *parser.PriceExtractor, runner *pipeline.Runner, reports ReportFinder, logger *slog.Logger) *Handlers {
	return &Handlers{
		extractor: extractor,
		runner:    runner,
		reports:   reports,
		logger:    logger,
	}
}

// ExtractRequest carries pre-fetched markup for engine-only extraction.
type ExtractRequest struct {
	Markup      string `json:"markup"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	ExpectedEAN string `json:"expected_ean"`
}

// ExtractResponse returns the report plus the raw unit-price pairs.
type ExtractResponse struct {
	Report models.Report           `json:"report"`
	Unit   models.UnitPriceSummary `json:"unit"`
}

// ExtractPrice runs the engine over markup supplied by the caller. No
// network traffic happens here; this is the fast path for callers that
// fetch pages themselves.
func (h *Handlers) ExtractPrice(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Markup == "" {
		h.respondError(w, http.StatusBadRequest, "markup is required")
		return
	}

	page := models.NewRawPage(req.Markup, req.Title, req.URL)
	result := h.extractor.Extract(page, req.ExpectedEAN)

	h.respondJSON(w, http.StatusOK, ExtractResponse{
		Report: models.BuildReport(&result, req.URL),
		Unit:   result.Unit,
	})
}

// ScrapeRequest asks the service to fetch and extract store pages itself.
type ScrapeRequest struct {
	EAN     string            `json:"ean"`
	Targets []pipeline.Target `json:"targets"`
}

// ScrapeResponse lists per-store reports and the cheapest hit, if any.
type ScrapeResponse struct {
	EAN      string                 `json:"ean"`
	Results  []pipeline.StoreReport `json:"results"`
	Cheapest *pipeline.StoreReport  `json:"cheapest,omitempty"`
}

// ScrapeProduct fetches each target page with the managed browser and runs
// extraction on the rendered markup.
func (h *Handlers) ScrapeProduct(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		h.respondError(w, http.StatusServiceUnavailable, "browser fetching is disabled")
		return
	}

	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.EAN == "" {
		h.respondError(w, http.StatusBadRequest, "ean is required")
		return
	}
	if len(req.Targets) == 0 {
		h.respondError(w, http.StatusBadRequest, "at least one target is required")
		return
	}

	results := h.runner.Lookup(r.Context(), req.EAN, req.Targets)

	h.respondJSON(w, http.StatusOK, ScrapeResponse{
		EAN:      req.EAN,
		Results:  results,
		Cheapest: pipeline.Cheapest(results),
	})
}

// GetReports returns the most recent persisted report per store for an EAN.
func (h *Handlers) GetReports(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		h.respondError(w, http.StatusServiceUnavailable, "report persistence is disabled")
		return
	}

	ean := chi.URLParam(r, "ean")
	if ean == "" {
		h.respondError(w, http.StatusBadRequest, "ean is required")
		return
	}

	reports, err := h.reports.LatestByEAN(r.Context(), ean)
	if err != nil {
		h.logger.Error("failed to load reports", "ean", ean, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load reports")
		return
	}

	if len(reports) == 0 {
		h.respondError(w, http.StatusNotFound, "no reports for this ean")
		return
	}

	h.respondJSON(w, http.StatusOK, reports)
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
