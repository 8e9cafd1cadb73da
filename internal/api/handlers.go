package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/toyscout/product-scraper/internal/executor"
	"github.com/toyscout/product-scraper/internal/jobs"
	"github.com/toyscout/product-scraper/internal/models"
	"github.com/toyscout/product-scraper/internal/registry"
	"github.com/toyscout/product-scraper/internal/resolver"
)

type Handlers struct {
	registry       *registry.Registry
	resolver       *resolver.Resolver
	executor       *executor.Executor
	store          *jobs.Store
	runner         *jobs.Runner
	validate       *validator.Validate
	defaultWorkers int
	logger         *slog.Logger

	// baseCtx outlives individual requests so job goroutines keep running
	// after the submitting request returns.
	baseCtx context.Context
}

func NewHandlers(baseCtx context.Context, reg *registry.Registry, res *resolver.Resolver, exec *executor.Executor, store *jobs.Store, runner *jobs.Runner, defaultWorkers int, logger *slog.Logger) *Handlers {
	return &Handlers{
		registry:       reg,
		resolver:       res,
		executor:       exec,
		store:          store,
		runner:         runner,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		defaultWorkers: defaultWorkers,
		logger:         logger,
		baseCtx:        baseCtx,
	}
}

// Routes mounts every endpoint on the given router.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Get("/sites", h.ListSites)
	r.Get("/brands", h.ListBrands)
	r.Get("/search/{site}/{query}", h.SearchSite)
	r.Post("/search/batch", h.SearchBatch)
	r.Post("/jobs", h.CreateJob)
	r.Get("/jobs/{jobID}/status", h.GetJobStatus)
	r.Delete("/jobs/{jobID}", h.DeleteJob)
}

// Health reports liveness and the current job-store size.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"jobs":   h.store.Len(),
	})
}

// ListSites returns the registered site identifiers.
func (h *Handlers) ListSites(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string][]string{"sites": h.registry.Sites()})
}

// ListBrands returns the registered brand identifiers.
func (h *Handlers) ListBrands(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string][]string{"brands": h.registry.Brands()})
}

// SearchSite scrapes a single site synchronously with a raw query string.
func (h *Handlers) SearchSite(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	query := chi.URLParam(r, "query")

	scr, err := h.registry.ResolveSite(site)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := scr.Scrape(query)
	if err != nil {
		h.logger.Error("site search failed", "site", site, "query", query, "error", err)
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, product)
}

// BatchRequest is the body shared by the synchronous batch endpoint and job
// creation. MaxWorkers of zero falls back to the configured default.
type BatchRequest struct {
	Products   []models.ScrapeRequest `json:"products" validate:"required,min=1"`
	MaxWorkers int                    `json:"max_workers" validate:"omitempty,min=1,max=500"`
}

// decodeBatch parses and fully validates a batch body. Item violations are
// reported with 1-based positions so callers can match them to their input.
func (h *Handlers) decodeBatch(r *http.Request) (*BatchRequest, error) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	if err := h.validate.Struct(&req); err != nil {
		return nil, err
	}
	for i, item := range req.Products {
		if err := h.resolver.Validate(item); err != nil {
			return nil, fmt.Errorf("product %d: %w", i+1, err)
		}
	}
	if req.MaxWorkers == 0 {
		req.MaxWorkers = h.defaultWorkers
	}
	return &req, nil
}

// SearchBatch scrapes a whole batch synchronously and returns results in
// input order. Nothing is scraped when any item fails validation.
func (h *Handlers) SearchBatch(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeBatch(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	results := h.executor.RunBatch(r.Context(), req.Products, req.MaxWorkers)
	h.respondJSON(w, http.StatusOK, results)
}

// CreateJobResponse carries the id callers poll for status.
type CreateJobResponse struct {
	JobID string `json:"job_id"`
}

// CreateJob validates the batch, registers a pending job and schedules it on
// the runner. The response returns before any scraping happens.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeBatch(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := h.store.Create(req.Products)
	h.runner.Submit(h.baseCtx, job.JobID, req.Products, req.MaxWorkers)

	h.respondJSON(w, http.StatusAccepted, CreateJobResponse{JobID: job.JobID})
}

// GetJobStatus returns the current snapshot of a job.
func (h *Handlers) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	snapshot, ok := h.store.Get(jobID)
	if !ok {
		h.respondError(w, http.StatusNotFound, "job not found")
		return
	}

	h.respondJSON(w, http.StatusOK, snapshot)
}

// DeleteJob removes a job from the store.
func (h *Handlers) DeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	if !h.store.Delete(jobID) {
		h.respondError(w, http.StatusNotFound, "job not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Helper methods
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
