package httpapi

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"shopledger/internal/calendar"
	"shopledger/internal/domain"
	"shopledger/internal/export"
	"shopledger/internal/ledger"
)

type Options struct {
	AllowedOrigin string
	Logger        *zap.Logger
	// Registerer receives the request metrics; nil skips registration.
	Registerer prometheus.Registerer
	// Gatherer backs /metrics; nil leaves the endpoint unmounted.
	Gatherer prometheus.Gatherer
	// Feed serves the websocket change feed on /api/v1/ws when set.
	Feed http.Handler
}

type API struct {
	ledger        *ledger.Engine
	validate      *validator.Validate
	logger        *zap.Logger
	allowedOrigin string
	feed          http.Handler
	gatherer      prometheus.Gatherer

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func New(engine *ledger.Engine, opts Options) *API {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	origin := strings.TrimSpace(opts.AllowedOrigin)
	if origin == "" {
		origin = "*"
	}

	a := &API{
		ledger:        engine,
		validate:      validator.New(),
		logger:        logger.With(zap.String("component", "httpapi")),
		allowedOrigin: origin,
		feed:          opts.Feed,
		gatherer:      opts.Gatherer,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shopledger_http_requests_total",
				Help: "HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shopledger_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
	}
	if opts.Registerer != nil {
		opts.Registerer.MustRegister(a.requests, a.latency)
	}
	return a
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	a.route(mux, "/healthz", "health", a.handleHealth)
	if a.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))
	}
	if a.feed != nil {
		mux.Handle("/api/v1/ws", a.feed)
	}

	a.route(mux, "/api/v1/products", "products", a.handleProducts)
	a.route(mux, "/api/v1/products/", "product", a.handleProductActions)
	a.route(mux, "/api/v1/sales", "sales", a.handleSales)
	a.route(mux, "/api/v1/pos/sales", "pos_sales", a.handlePOSSale)
	a.route(mux, "/api/v1/items", "items", a.handleItems)
	a.route(mux, "/api/v1/items/", "item", a.handleItemActions)
	a.route(mux, "/api/v1/summary", "summary", a.handleSummary)
	a.route(mux, "/api/v1/export/sales.csv", "export_sales", a.handleExportSales)
	a.route(mux, "/api/v1/export/items.csv", "export_items", a.handleExportItems)
	a.route(mux, "/api/v1/export/products.csv", "export_products", a.handleExportProducts)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{a.allowedOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
	})
	return c.Handler(a.withMiddleware(mux))
}

// route mounts h under pattern and labels its metrics with name, so ids in
// the path never become label values.
func (a *API) route(mux *http.ServeMux, pattern, name string, h http.HandlerFunc) {
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		rec, ok := w.(*statusRecorder)
		if !ok {
			rec = &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		}
		h(rec, r)
		a.latency.WithLabelValues(name, r.Method).Observe(time.Since(startedAt).Seconds())
		a.requests.WithLabelValues(name, r.Method, strconv.Itoa(rec.status)).Inc()
	}))
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		products := a.ledger.FilterProducts(r.URL.Query().Get("q"))
		writeJSON(w, http.StatusOK, map[string]any{"products": withStockValue(products)})
	case http.MethodPost:
		var req domain.ProductInput
		if !a.decodeValid(w, r, &req) {
			return
		}
		product, err := a.ledger.AddProduct(r.Context(), req)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"product": product})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleProductActions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r.URL.Path, "/api/v1/products/")
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("product id required"))
		return
	}
	if r.Method != http.MethodDelete {
		writeMethodNotAllowed(w)
		return
	}
	if err := a.ledger.DeleteProduct(r.Context(), id); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filter, err := a.parseFilter(r)
		if err != nil {
			a.fail(w, err)
			return
		}
		sales := a.ledger.FilterSales(filter)
		writeJSON(w, http.StatusOK, map[string]any{
			"sales":  sales,
			"totals": ledger.Aggregate(sales),
		})
	case http.MethodPost:
		var req domain.SaleRequest
		if !a.decodeValid(w, r, &req) {
			return
		}
		sale, err := a.ledger.RegisterSale(r.Context(), req.Date, req.Items)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"sale": sale})
	case http.MethodDelete:
		if err := a.ledger.ClearSales(r.Context()); err != nil {
			a.fail(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w)
	}
}

// handlePOSSale accepts a sale already priced by the point-of-sale screen.
func (a *API) handlePOSSale(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req domain.SalePayload
	if !a.decodeValid(w, r, &req) {
		return
	}
	if err := a.ledger.RecordSale(r.Context(), req); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) handleItems(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filter, err := a.parseFilter(r)
		if err != nil {
			a.fail(w, err)
			return
		}
		items := a.ledger.FilterItems(filter)
		writeJSON(w, http.StatusOK, map[string]any{
			"items":  items,
			"totals": ledger.Aggregate(items),
		})
	case http.MethodPost:
		var req domain.ItemInput
		if !a.decodeValid(w, r, &req) {
			return
		}
		item, err := a.ledger.AddItem(r.Context(), req)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"item": item})
	case http.MethodDelete:
		if err := a.ledger.ClearItems(r.Context()); err != nil {
			a.fail(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleItemActions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r.URL.Path, "/api/v1/items/")
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("item id required"))
		return
	}
	if r.Method != http.MethodDelete {
		writeMethodNotAllowed(w)
		return
	}
	if err := a.ledger.DeleteItem(r.Context(), id); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	filter, err := a.parseFilter(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.ledger.Summary(filter))
}

func (a *API) handleExportSales(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	filter, err := a.parseFilter(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	table, err := export.SalesTable(a.ledger.FilterSales(filter))
	if err != nil {
		a.fail(w, err)
		return
	}
	a.writeCSV(w, "sales", table)
}

func (a *API) handleExportItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	filter, err := a.parseFilter(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.writeCSV(w, "items", export.ItemsTable(a.ledger.FilterItems(filter)))
}

func (a *API) handleExportProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	products := a.ledger.FilterProducts(r.URL.Query().Get("q"))
	a.writeCSV(w, "products", export.ProductsTable(products))
}

func (a *API) writeCSV(w http.ResponseWriter, prefix string, table export.Table) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(prefix, a.ledger.Now())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(table.CSV()))
}

// parseFilter reads range, from, to and q. from/to without a range mean a
// custom range; a relative range ignores them.
func (a *API) parseFilter(r *http.Request) (domain.Filter, error) {
	query := r.URL.Query()
	selector := calendar.Selector(strings.TrimSpace(query.Get("range")))

	from, err := a.parseDayParam(query.Get("from"))
	if err != nil {
		return domain.Filter{}, err
	}
	to, err := a.parseDayParam(query.Get("to"))
	if err != nil {
		return domain.Filter{}, err
	}
	if selector == "" && (from != nil || to != nil) {
		selector = calendar.Custom
	}

	bounds, err := calendar.Resolve(a.ledger.Now(), selector, from, to)
	if err != nil {
		return domain.Filter{}, err
	}
	return domain.Filter{From: bounds.From, To: bounds.To, Search: query.Get("q")}, nil
}

func (a *API) parseDayParam(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	day, err := calendar.ParseDay(raw, a.ledger.Location())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrValidation, err)
	}
	return &day, nil
}

// decodeValid decodes and validates the body, writing a 400 on failure.
func (a *API) decodeValid(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := decodeJSON(r, dest); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	if err := a.validate.Struct(dest); err != nil {
		writeError(w, http.StatusBadRequest, validationError(err))
		return false
	}
	return true
}

func validationError(err error) error {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return err
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s failed %s", f.Namespace(), f.Tag()))
	}
	return fmt.Errorf("invalid request: %s", strings.Join(parts, ", "))
}

// fail maps ledger errors onto status codes.
func (a *API) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= 500 {
		a.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeError(w, status, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrValidation), errors.Is(err, calendar.ErrUnknownRange):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, export.ErrNothingToExport):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type productView struct {
	domain.Product
	StockValue float64 `json:"stockValue"`
}

func withStockValue(products []domain.Product) []productView {
	out := make([]productView, 0, len(products))
	for _, p := range products {
		out = append(out, productView{Product: p, StockValue: ledger.StockValue(p)})
	}
	return out
}

func pathID(path, prefix string) (string, bool) {
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	id := strings.TrimSpace(strings.Trim(strings.TrimPrefix(path, prefix), "/"))
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")

		if r.Method == http.MethodPost && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		startedAt := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("latency", time.Since(startedAt)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket feed upgrade through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx bodies stay generic; details only go to the log.
	msg := err.Error()
	if status >= 500 {
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
