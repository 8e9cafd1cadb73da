package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyscout/product-scraper/internal/executor"
	"github.com/toyscout/product-scraper/internal/jobs"
	"github.com/toyscout/product-scraper/internal/models"
	"github.com/toyscout/product-scraper/internal/registry"
	"github.com/toyscout/product-scraper/internal/resolver"
	"github.com/toyscout/product-scraper/internal/scraper"
)

type stubScraper struct {
	product *models.Product
	err     error
}

func (s *stubScraper) Scrape(searchText string) (*models.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	p := *s.product
	if p.Title == "" {
		p.Title = searchText
	}
	return &p, nil
}

type testServer struct {
	router *chi.Mux
	runner *jobs.Runner
	store  *jobs.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.Default()

	reg := registry.NewWithScrapers(
		map[string]scraper.Scraper{
			"hape":        &stubScraper{product: &models.Product{SKU: "E3700"}},
			"hape_global": &stubScraper{product: &models.Product{Title: "global hit"}},
			"broken":      &stubScraper{err: fmt.Errorf("no products found")},
		},
		map[string][]string{
			"hape":   {"hape", "hape_global"},
			"broken": {"broken"},
		},
	)
	res := resolver.New(reg, logger)
	exec := executor.New(res, logger)
	store := jobs.NewStore(logger)
	runner := jobs.NewRunner(store, exec, 2, logger)

	h := NewHandlers(context.Background(), reg, res, exec, store, runner, 4, logger)
	router := chi.NewRouter()
	h.Routes(router)

	return &testServer{router: router, runner: runner, store: store}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "ok", body["status"])
}

func TestListSitesAndBrands(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/sites", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sites := decode[map[string][]string](t, rec)
	assert.Equal(t, []string{"broken", "hape", "hape_global"}, sites["sites"])

	rec = ts.do(t, http.MethodGet, "/brands", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	brands := decode[map[string][]string](t, rec)
	assert.Equal(t, []string{"broken", "hape"}, brands["brands"])
}

func TestSearchSite(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/search/hape/E3700", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	product := decode[models.Product](t, rec)
	assert.Equal(t, "E3700", product.Title)

	rec = ts.do(t, http.MethodGet, "/search/unknown/query", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := decode[map[string]string](t, rec)
	assert.Contains(t, errBody["error"], "unknown site")

	rec = ts.do(t, http.MethodGet, "/search/broken/query", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSearchBatch(t *testing.T) {
	ts := newTestServer(t)

	body := BatchRequest{Products: []models.ScrapeRequest{
		{Brand: "hape", Code: "E3700", Quantity: "2"},
		{Site: "broken", Name: "anything"},
	}}
	rec := ts.do(t, http.MethodPost, "/search/batch", body)
	require.Equal(t, http.StatusOK, rec.Code)

	results := decode[[]models.ScrapeResult](t, rec)
	require.Len(t, results, 2)
	assert.Equal(t, models.StatusSuccess, results[0].Status)
	assert.Equal(t, "2", results[0].Quantity)
	assert.Equal(t, models.StatusError, results[1].Status)
	assert.Contains(t, results[1].Error, "no products found")
}

func TestSearchBatchValidation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name    string
		body    interface{}
		wantErr string
	}{
		{
			name:    "malformed json",
			body:    "not json",
			wantErr: "invalid request body",
		},
		{
			name:    "empty products",
			body:    BatchRequest{Products: []models.ScrapeRequest{}},
			wantErr: "Products",
		},
		{
			name: "item missing brand and site reports 1-based position",
			body: BatchRequest{Products: []models.ScrapeRequest{
				{Brand: "hape", Name: "ok"},
				{Name: "orphan"},
			}},
			wantErr: "product 2: brand or site required",
		},
		{
			name: "unknown brand rejected before scraping",
			body: BatchRequest{Products: []models.ScrapeRequest{
				{Brand: "mystery", Name: "x"},
			}},
			wantErr: "product 1: unknown brand",
		},
		{
			name: "max workers over limit",
			body: BatchRequest{
				Products:   []models.ScrapeRequest{{Brand: "hape", Name: "x"}},
				MaxWorkers: 501,
			},
			wantErr: "MaxWorkers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/search/batch", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			errBody := decode[map[string]string](t, rec)
			assert.Contains(t, errBody["error"], tt.wantErr)
		})
	}
}

func TestJobLifecycle(t *testing.T) {
	ts := newTestServer(t)

	body := BatchRequest{Products: []models.ScrapeRequest{
		{Brand: "hape", Code: "E3700"},
		{Site: "broken", Name: "x"},
	}}
	rec := ts.do(t, http.MethodPost, "/jobs", body)
	require.Equal(t, http.StatusAccepted, rec.Code)

	created := decode[CreateJobResponse](t, rec)
	require.NotEmpty(t, created.JobID)

	ts.runner.Wait()

	rec = ts.do(t, http.MethodGet, "/jobs/"+created.JobID+"/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	snap := decode[jobs.Snapshot](t, rec)
	assert.Equal(t, created.JobID, snap.JobID)
	assert.Equal(t, jobs.StatusCompleted, snap.Status)
	assert.Equal(t, 100, snap.Progress)
	assert.Equal(t, 2, snap.TotalProducts)
	require.Len(t, snap.Results, 2)
	assert.Equal(t, models.StatusSuccess, snap.Results[0].Status)
	assert.Equal(t, models.StatusError, snap.Results[1].Status)
	assert.Len(t, snap.OriginalProducts, 2)
}

func TestJobValidationRejectsWholeBatch(t *testing.T) {
	ts := newTestServer(t)

	body := BatchRequest{Products: []models.ScrapeRequest{
		{Brand: "hape", Name: "ok"},
		{Brand: "mystery", Name: "bad"},
	}}
	rec := ts.do(t, http.MethodPost, "/jobs", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Nothing was registered.
	assert.Equal(t, 0, ts.store.Len())
}

func TestGetJobStatusNotFound(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/jobs/no-such-id/status", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteJob(t *testing.T) {
	ts := newTestServer(t)

	body := BatchRequest{Products: []models.ScrapeRequest{{Brand: "hape", Name: "x"}}}
	rec := ts.do(t, http.MethodPost, "/jobs", body)
	require.Equal(t, http.StatusAccepted, rec.Code)
	created := decode[CreateJobResponse](t, rec)
	ts.runner.Wait()

	rec = ts.do(t, http.MethodDelete, "/jobs/"+created.JobID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/jobs/"+created.JobID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
