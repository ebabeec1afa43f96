package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/csrf"

	"storefront/internal/adapters/http/middleware"
	"storefront/internal/application/projections"
	"storefront/internal/domain/address"
	"storefront/internal/domain/cart"
	"storefront/internal/domain/catalog"
	"storefront/internal/domain/compare"
	"storefront/internal/domain/order"
	"storefront/internal/domain/outbox"
	"storefront/internal/domain/user"
	"storefront/internal/state"
)

// maxBodyBytes bounds JSON request bodies; state imports are the largest.
const maxBodyBytes = 1 << 20

var (
	errOutOfStock      = errors.New("product out of stock")
	errAddressNotFound = errors.New("address not found")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// decodeRequest decodes and validates a JSON body. On failure it writes 400 and returns false.
func decodeRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := strictDecode(w, r, v); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	if err := validate.Struct(v); err != nil {
		http.Error(w, validationMessage(err), http.StatusBadRequest)
		return false
	}
	return true
}

func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return "invalid request"
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		parts = append(parts, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response_encode_failed", "error", err)
	}
}

// writeError maps domain sentinels to client errors; anything else is a 500.
func writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, catalog.ErrServiceNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, errAddressNotFound),
		errors.Is(err, outbox.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, compare.ErrComparisonFull),
		errors.Is(err, errOutOfStock),
		errors.Is(err, outbox.ErrTerminal):
		status = http.StatusConflict
	case errors.Is(err, user.ErrNotLoggedIn):
		status = http.StatusUnauthorized
	case errors.Is(err, cart.ErrEmptyCart),
		errors.Is(err, address.ErrNoAddress):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, order.ErrInvalidPayment),
		errors.Is(err, order.ErrInvalidShipping),
		errors.Is(err, state.ErrUnknownNamespace),
		errors.Is(err, state.ErrMalformedSnapshot):
		status = http.StatusBadRequest
	default:
		internalError(w, err)
		return
	}
	http.Error(w, err.Error(), status)
}

// session resolves the visitor's state bundle. On failure the response is written.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*state.Session, bool) {
	token, ok := middleware.TokenFromContext(r.Context())
	if !ok {
		internalError(w, errors.New("request reached a session handler without a token"))
		return nil, false
	}
	sess, err := s.deps.Registry.Session(r.Context(), token)
	if err != nil {
		internalError(w, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) catalog() *catalog.Catalog {
	return s.deps.Catalog.Current()
}

func (s *Server) listDeps() projections.ListProductsDeps {
	return projections.ListProductsDeps{Catalog: s.catalog(), Rules: s.deps.Rules}
}

// requireAdmin guards operator routes with a bearer token. With no token
// configured the routes do not exist.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.opts.AdminToken == "" {
			http.NotFound(w, r)
			return
		}
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(s.opts.AdminToken)) != 1 {
			slog.Warn("admin_auth_failed", "path", r.URL.Path)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// handleListProducts serves GET /api/products.
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	query := projections.ParseListProductsQuery(r.URL.Query())
	result, err := projections.QueryListProducts(r.Context(), query, s.listDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGetProduct serves GET /api/products/{slug}.
func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	detail, err := projections.QueryGetProduct(r.Context(), r.PathValue("slug"), s.listDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": s.catalog().Categories})
}

// handleServiceOptions serves GET /api/service-options.
// ?category= narrows services to a category; ?productId= adds that product's rentals.
func (s *Server) handleServiceOptions(w http.ResponseWriter, r *http.Request) {
	c := s.catalog()
	q := r.URL.Query()

	services := c.Services
	if category := q.Get("category"); category != "" {
		services = c.ServicesFor(category)
	}
	rentals := c.Rentals
	if productID := q.Get("productId"); productID != "" {
		rentals = c.RentalsFor(productID)
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": services, "rentals": rentals})
}

// handlePricing serves GET /api/pricing?total=.
func (s *Server) handlePricing(w http.ResponseWriter, r *http.Request) {
	rules := s.deps.Rules
	body := map[string]any{"rules": rules}
	if raw := r.URL.Query().Get("total"); raw != "" {
		total, err := strconv.ParseFloat(raw, 64)
		if err != nil || total < 0 || total > catalog.MaxPrice {
			http.Error(w, "total must be a non-negative amount", http.StatusBadRequest)
			return
		}
		body["total"] = total
		body["pixPrice"] = rules.PixPrice(total)
		body["installment"] = rules.Installments(total)
		body["shipping"] = rules.QuoteShipping(total)
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":         "ok",
		"sessions":       s.deps.Registry.Len(),
		"catalogReloads": s.deps.Catalog.Reloads(),
	}
	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Health(ctx); err != nil {
			slog.Warn("health_check_failed", "error", err)
			body["status"] = "degraded"
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
	}
	writeJSON(w, http.StatusOK, body)
}

// handleCSRFToken hands out the token form posts must echo in X-CSRF-Token.
func (s *Server) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"token": csrf.Token(r)})
}

// handlePerf serves GET /debug/perf?minutes=&top=.
func (s *Server) handlePerf(w http.ResponseWriter, r *http.Request) {
	minutes, top := 15, 10
	if n, err := strconv.Atoi(r.URL.Query().Get("minutes")); err == nil && n > 0 && n <= 24*60 {
		minutes = n
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("top")); err == nil && n > 0 && n <= 100 {
		top = n
	}
	if s.deps.Collector == nil {
		http.Error(w, "perf collector disabled", http.StatusNotFound)
		return
	}
	since := s.deps.Now().Add(-time.Duration(minutes) * time.Minute)
	writeJSON(w, http.StatusOK, s.deps.Collector.Snapshot(since, top))
}
