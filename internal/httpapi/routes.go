package httpapi

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"campaign-engine/internal/campaign"
	"campaign-engine/internal/logger"
	"campaign-engine/internal/model"
	"campaign-engine/internal/orchestrator"
	"campaign-engine/internal/productinsight"
	"campaign-engine/internal/segmentation"
	"campaign-engine/internal/store"
	"campaign-engine/internal/validation"
)

const maxBatch = 100

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	ctrl      *orchestrator.Controller
	campaigns *campaign.Service
	repo      store.Repository
	defaults  store.Defaults
	remote    bool
	stats     CacheStats
	now       func() time.Time
	log       *logrus.Entry
}

// CacheStats reports agent cache counters. *cache.Invoker satisfies it.
type CacheStats interface {
	Stats(ctx context.Context) (hits, misses int64, err error)
}

type Option func(*Server)

// WithCacheStats adds agent cache counters to the health response.
func WithCacheStats(cs CacheStats) Option {
	return func(s *Server) { s.stats = cs }
}

func NewServer(ctrl *orchestrator.Controller, campaigns *campaign.Service, repo store.Repository, defaults store.Defaults, remote bool, opts ...Option) *Server {
	s := &Server{
		ctrl:      ctrl,
		campaigns: campaigns,
		repo:      repo,
		defaults:  defaults,
		remote:    remote,
		now:       time.Now,
		log:       logger.Get("httpapi"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// RegisterRoutes wires HTTP routes.
// gorilla/mux: Router provides method-based routing and URL pattern matching.
func (s *Server) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	api.HandleFunc("/orchestrate", s.orchestrateHandler).Methods(http.MethodPost)
	api.HandleFunc("/orchestrate/batch", s.batchHandler).Methods(http.MethodPost)
	api.HandleFunc("/customers", s.listCustomersHandler).Methods(http.MethodGet)
	api.HandleFunc("/customers/analyze", s.analyzeCustomerHandler).Methods(http.MethodPost)
	api.HandleFunc("/customers/{customer_id}", s.getCustomerHandler).Methods(http.MethodGet)
	api.HandleFunc("/products/analyze", s.analyzeProductsHandler).Methods(http.MethodPost)
	api.HandleFunc("/campaigns", s.campaignsHandler).Methods(http.MethodPost)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":    "ok",
		"remote":    s.remote,
		"timestamp": s.now().UTC().Format(time.RFC3339),
	}
	if s.stats != nil {
		hits, misses, err := s.stats.Stats(r.Context())
		if err != nil {
			resp["agentCache"] = map[string]any{"error": err.Error()}
		} else {
			resp["agentCache"] = map[string]any{"hits": hits, "misses": misses}
		}
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// orchestrateHandler runs the full pipeline. Only malformed requests and
// unknown customers fail; everything else is reported as warnings.
func (s *Server) orchestrateHandler(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var req model.OrchestrationRequest
	if err := json.Unmarshal(unwrapSandbox(body), &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if status, msg := s.prepare(r, &req); status != http.StatusOK {
		writeError(w, r, status, msg)
		return
	}

	writeJSON(w, r, http.StatusOK, s.ctrl.Run(r.Context(), &req))
}

func (s *Server) batchHandler(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var payload struct {
		Requests []*model.OrchestrationRequest `json:"requests"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(payload.Requests) == 0 || len(payload.Requests) > maxBatch {
		writeError(w, r, http.StatusBadRequest, "requests must hold between 1 and "+strconv.Itoa(maxBatch)+" entries")
		return
	}
	for _, req := range payload.Requests {
		if req == nil {
			writeError(w, r, http.StatusBadRequest, "null request in batch")
			return
		}
		if status, msg := s.prepare(r, req); status != http.StatusOK {
			writeError(w, r, status, msg)
			return
		}
	}

	results, stats, err := s.ctrl.RunBatch(r.Context(), payload.Requests)
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"results": results, "stats": stats})
}

// prepare validates a request and fills customer and product data from the store.
func (s *Server) prepare(r *http.Request, req *model.OrchestrationRequest) (int, string) {
	// go-playground/validator/v10: Struct checks request bounds such as maxProducts.
	if problems := validation.Struct(req); len(problems) > 0 {
		return http.StatusBadRequest, "validation failed: " + strings.Join(problems, "; ")
	}
	if s.repo == nil {
		return http.StatusOK, ""
	}
	ctx := r.Context()

	if req.CustomerID != "" && isEmpty(req.CustomerData) {
		data, err := store.CustomerData(ctx, s.repo, req.CustomerID, s.defaults)
		if errors.Is(err, store.ErrNotFound) {
			return http.StatusNotFound, "customer " + req.CustomerID + " not found"
		}
		if err != nil {
			s.log.WithError(err).Warn("HTTP: customer lookup failed")
		} else if raw, err := json.Marshal(data); err == nil {
			req.CustomerData = raw
		}
	}

	if isEmpty(req.ProductData) {
		max := req.MaxProducts
		if max == 0 {
			max = s.defaults.MaxProducts
		}
		data, err := store.ProductData(ctx, s.repo, s.defaults.TenantID, max, s.now())
		if err != nil {
			s.log.WithError(err).Warn("HTTP: catalog lookup failed")
		} else if len(data.Products) > 0 {
			if raw, err := json.Marshal(data); err == nil {
				req.ProductData = raw
			}
		}
	}
	return http.StatusOK, ""
}

// listCustomersHandler handles GET /api/customers?limit=&offset=
func (s *Server) listCustomersHandler(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		writeError(w, r, http.StatusServiceUnavailable, "no customer store configured")
		return
	}
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}
	offset := 0
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	customers, err := s.repo.ListCustomers(r.Context(), limit, offset)
	if err != nil {
		s.log.WithError(err).Error("HTTP: listing customers failed")
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	summaries := make([]map[string]any, 0, len(customers))
	for _, c := range customers {
		summaries = append(summaries, map[string]any{
			"customerId":   c.CustomerID,
			"city":         c.City,
			"age":          c.Age,
			"productCount": len(c.ProductHistory),
		})
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(summaries),
		"data":    summaries,
	})
}

// getCustomerHandler returns the assembled segmentation input of one customer.
func (s *Server) getCustomerHandler(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		writeError(w, r, http.StatusServiceUnavailable, "no customer store configured")
		return
	}
	id := mux.Vars(r)["customer_id"]
	data, err := store.CustomerData(r.Context(), s.repo, id, s.defaults)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "customer "+id+" not found")
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, data)
}

func (s *Server) analyzeCustomerHandler(w http.ResponseWriter, r *http.Request) {
	var data model.CustomerData
	if !decode(w, r, &data) {
		return
	}
	insight, err := segmentation.Analyze(&data, s.now())
	if errors.Is(err, segmentation.ErrInvalidCustomer) {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, insight)
}

func (s *Server) analyzeProductsHandler(w http.ResponseWriter, r *http.Request) {
	var data model.ProductData
	if !decode(w, r, &data) {
		return
	}
	writeJSON(w, r, http.StatusOK, productinsight.Aggregate(&data, s.now()))
}

func (s *Server) campaignsHandler(w http.ResponseWriter, r *http.Request) {
	var req campaign.Request
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, r, http.StatusOK, s.campaigns.Generate(req))
}

// readBody reads the request body, transparently decompressing gzip.
func readBody(r *http.Request) ([]byte, error) {
	reader := io.Reader(r.Body)
	if enc := r.Header.Get("Content-Encoding"); strings.EqualFold(enc, "gzip") {
		gr, err := gzip.NewReader(r.Body)
		if err != nil {
			return nil, errors.New("failed to decompress gzip body")
		}
		defer gr.Close()
		reader = gr
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.New("failed to read body")
	}
	return body, nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// unwrapSandbox accepts {"prompt": "<json>"} where the string holds the real
// request, as sent by agent sandboxes. Anything else is returned unchanged.
func unwrapSandbox(body []byte) []byte {
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(body, &outer); err != nil || len(outer) != 1 {
		return body
	}
	var inner string
	if err := json.Unmarshal(outer["prompt"], &inner); err != nil {
		return body
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(inner), &fields); err != nil {
		return body
	}
	for _, k := range []string{"customerData", "productData", "customerId"} {
		if _, ok := fields[k]; ok {
			return []byte(inner)
		}
	}
	return body
}

func isEmpty(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]any{"success": false, "error": msg})
}

// writeJSON gzip-compresses the response when the client accepts it.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
		return
	}
	w.Header().Set("Content-Encoding", "gzip")
	w.WriteHeader(status)
	gw := gzip.NewWriter(w)
	defer gw.Close()
	_ = json.NewEncoder(gw).Encode(v)
}
