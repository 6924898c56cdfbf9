package httpapi

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-engine/internal/campaign"
	"campaign-engine/internal/config"
	"campaign-engine/internal/matching"
	"campaign-engine/internal/model"
	"campaign-engine/internal/orchestrator"
	"campaign-engine/internal/store"
)

var refNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return refNow }

func seedDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"customers.jsonl": `{"customerId":"C-1001","age":32,"city":"Istanbul","registeredAt":"2025-01-01T00:00:00","productHistory":[{"productId":"P-1","category":"SKINCARE","totalQuantity":10,"totalSpent":599.5,"orderCount":10,"lastPurchase":"2026-02-19T00:00:00","avgDaysBetween":30}]}
{"customerId":"C-2002","age":45,"city":"Van"}`,
		"regions.jsonl":  `{"name":"Marmara","climateType":"Temperate","medianBasket":75,"trend":"SKINCARE","cities":["Istanbul"]}`,
		"products.jsonl": `{"productId":"P-1","tenantId":"farmasi","productName":"Serum","category":"SKINCARE","currentStock":300,"last30DaysSales":90,"unitPrice":60,"unitCost":20,"createdAt":"2024-01-01"}
{"productId":"P-2","tenantId":"farmasi","productName":"Lipstick","category":"MAKEUP","currentStock":500,"last30DaysSales":3,"unitPrice":30,"unitCost":10,"createdAt":"2024-01-01"}`,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body+"\n"), 0o644))
	}
	return dir
}

func newRouter(t *testing.T, repo store.Repository, opts ...Option) *mux.Router {
	t.Helper()
	cfg := &config.Config{
		CustomerAgentID:     "customer",
		ProductAgentID:      "product",
		CampaignAgentID:     "campaign",
		SpecialDayLookahead: 30,
		DefaultMaxProducts:  30,
	}
	s := NewServer(
		orchestrator.NewController(cfg, orchestrator.WithClock(clock)),
		campaign.NewService(matching.NewEngine(matching.WithClock(clock)), 30, clock),
		repo,
		store.Defaults{
			Region:      model.Region{Name: "Default", ClimateType: "Temperate", MedianBasket: 60, Trend: "SKINCARE"},
			TenantID:    "farmasi",
			MaxProducts: 30,
		},
		false,
		opts...,
	)
	s.now = clock
	r := mux.NewRouter()
	s.RegisterRoutes(r)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) model.OrchestrationResult {
	t.Helper()
	var res model.OrchestrationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func TestHealth(t *testing.T) {
	rec := do(newRouter(t, nil), http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

type fixedStats struct {
	hits, misses int64
	err          error
}

func (f fixedStats) Stats(context.Context) (int64, int64, error) { return f.hits, f.misses, f.err }

func TestHealth_AgentCacheStats(t *testing.T) {
	rec := do(newRouter(t, nil, WithCacheStats(fixedStats{hits: 3, misses: 5})), http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		AgentCache map[string]any `json:"agentCache"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(3), body.AgentCache["hits"])
	assert.Equal(t, float64(5), body.AgentCache["misses"])

	rec = do(newRouter(t, nil, WithCacheStats(fixedStats{err: errors.New("redis down")})), http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis down")

	rec = do(newRouter(t, nil), http.MethodGet, "/api/health", "")
	assert.NotContains(t, rec.Body.String(), "agentCache")
}

func TestOrchestrate_ResolvesCustomerFromStore(t *testing.T) {
	r := newRouter(t, store.NewFileStore(seedDir(t)))
	rec := do(r, http.MethodPost, "/api/orchestrate", `{"customerId":"C-1001","prompt":"summer skincare"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	res := decodeResult(t, rec)
	assert.True(t, res.OrchestrationSummary.CustomerAnalyzed)
	assert.True(t, res.OrchestrationSummary.ProductAnalyzed, "catalog loaded from the store")
	assert.NotEmpty(t, res.Campaigns)
}

func TestOrchestrate_UnknownCustomer(t *testing.T) {
	r := newRouter(t, store.NewFileStore(seedDir(t)))
	rec := do(r, http.MethodPost, "/api/orchestrate", `{"customerId":"C-404"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrchestrate_MalformedJSON(t *testing.T) {
	rec := do(newRouter(t, nil), http.MethodPost, "/api/orchestrate", `{"customerId":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrchestrate_NegativeMaxProducts(t *testing.T) {
	rec := do(newRouter(t, nil), http.MethodPost, "/api/orchestrate", `{"maxProducts":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "maxProducts")
}

func TestOrchestrate_WithoutStoreStillAnswers(t *testing.T) {
	rec := do(newRouter(t, nil), http.MethodPost, "/api/orchestrate", `{"prompt":"anything"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	res := decodeResult(t, rec)
	assert.False(t, res.OrchestrationSummary.CustomerAnalyzed)
	assert.Len(t, res.OrchestrationSummary.Warnings, 2)
	assert.NotEmpty(t, res.Campaigns)
}

func TestOrchestrate_SandboxWrappedBody(t *testing.T) {
	inner := `{"productData":{"currentMonth":3,"products":[{"productId":"P-7","category":"SKINCARE","currentStock":50,"last30DaysSales":30,"unitPrice":20,"unitCost":5}]}}`
	outer, err := json.Marshal(map[string]string{"prompt": inner})
	require.NoError(t, err)

	rec := do(newRouter(t, nil), http.MethodPost, "/api/orchestrate", string(outer))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeResult(t, rec).OrchestrationSummary.ProductAnalyzed)
}

func TestUnwrapSandbox_LeavesPlainPromptAlone(t *testing.T) {
	body := []byte(`{"prompt":"Generate campaigns"}`)
	assert.Equal(t, body, unwrapSandbox(body))

	body = []byte(`{"prompt":"{\"other\":1}"}`)
	assert.Equal(t, body, unwrapSandbox(body))
}

func TestOrchestrate_GzipRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write([]byte(`{"prompt":"hello"}`))
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/orchestrate", &buf)
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	newRouter(t, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	gr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	plain, err := io.ReadAll(gr)
	require.NoError(t, err)
	assert.Contains(t, string(plain), "campaigns")
}

func TestBatch(t *testing.T) {
	r := newRouter(t, store.NewFileStore(seedDir(t)))
	rec := do(r, http.MethodPost, "/api/orchestrate/batch",
		`{"requests":[{"customerId":"C-1001"},{"customerId":"C-2002","requestId":"second"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Results []model.OrchestrationResult `json:"results"`
		Stats   orchestrator.BatchStats      `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Results, 2)
	assert.Equal(t, 2, out.Stats.Requests)
	for _, res := range out.Results {
		assert.True(t, res.OrchestrationSummary.CustomerAnalyzed)
	}
}

func TestBatch_Empty(t *testing.T) {
	rec := do(newRouter(t, nil), http.MethodPost, "/api/orchestrate/batch", `{"requests":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCustomers(t *testing.T) {
	r := newRouter(t, store.NewFileStore(seedDir(t)))

	rec := do(r, http.MethodGet, "/api/customers?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Count int              `json:"count"`
		Data  []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, "C-1001", list.Data[0]["customerId"])

	rec = do(r, http.MethodGet, "/api/customers/C-2002", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var data model.CustomerData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &data))
	assert.Equal(t, "Default", data.Region.Name, "Van has no region")

	rec = do(r, http.MethodGet, "/api/customers/C-404", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCustomers_NoStore(t *testing.T) {
	rec := do(newRouter(t, nil), http.MethodGet, "/api/customers", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAnalyzeCustomer(t *testing.T) {
	r := newRouter(t, nil)
	rec := do(r, http.MethodPost, "/api/customers/analyze", `{
		"customerId": "C-9",
		"customer": {"customerId": "C-9", "age": 30, "registeredAt": "2025-01-01T00:00:00", "productHistory": []},
		"region": {"name": "Marmara", "climateType": "Temperate", "medianBasket": 75, "trend": "SKINCARE"}
	}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var insight model.CustomerInsight
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &insight))
	assert.Equal(t, "C-9", insight.CustomerID)

	rec = do(r, http.MethodPost, "/api/customers/analyze", `{"customer": {"age": 200}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeProducts(t *testing.T) {
	rec := do(newRouter(t, nil), http.MethodPost, "/api/products/analyze",
		`{"currentMonth":3,"products":[{"productId":"P-1","category":"SKINCARE","currentStock":0,"last30DaysSales":30,"unitPrice":10,"unitCost":4}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var insight model.ProductInsight
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &insight))
	assert.Equal(t, 1, insight.InventorySummary["Critical"])
}

func TestCampaigns(t *testing.T) {
	rec := do(newRouter(t, nil), http.MethodPost, "/api/campaigns", `{"prompt":"clearance sale","customerInsight":null,"productInsight":null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp model.CampaignResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Campaigns)
	assert.Equal(t, "clearance sale", resp.PromptUsed)
}
