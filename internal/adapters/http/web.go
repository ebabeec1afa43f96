package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"storefront/internal/adapters/catalogfile"
	"storefront/internal/adapters/http/middleware"
	"storefront/internal/adapters/http/perf"
	outboxStore "storefront/internal/adapters/storage/outbox"
	"storefront/internal/application/orchestrators"
	"storefront/internal/domain/pricing"
	"storefront/internal/metrics"
	"storefront/internal/state"
)

var ErrCSRFKeyRequired = errors.New("csrf key is required in production")

// Deps holds everything the handlers reach into.
type Deps struct {
	Registry  *state.Registry
	Catalog   *catalogfile.Source
	Rules     pricing.Rules
	Outbox    outboxStore.Store // nil disables confirmation emails and the outbox admin routes
	Processor *orchestrators.OutboxProcessor
	Collector *perf.Collector
	Health    func(context.Context) error // storage ping; nil reports healthy
	Now       func() time.Time
}

// Options are the transport settings taken from config.
type Options struct {
	CookieSecure   bool
	CSRFKey        []byte
	TrustedOrigins []string
	RateLimit      float64
	RateBurst      int
	SlowRequest    time.Duration
	AdminToken     string // empty disables /api/admin and /debug/perf
	StaticDir      string // empty serves no static files
}

// Server is the storefront HTTP handler.
type Server struct {
	deps    Deps
	opts    Options
	handler http.Handler

	mu      sync.Mutex
	closed  bool
	closing chan struct{}
	feeds   sync.WaitGroup
}

// LoadCSRFKey decodes the configured CSRF secret (64 hex characters or 32 raw bytes).
// Outside production an empty key yields a random per-process key.
func LoadCSRFKey(raw string, production bool) ([]byte, error) {
	switch {
	case len(raw) == 64:
		key, err := hex.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("csrf key: %w", err)
		}
		return key, nil
	case len(raw) == 32:
		return []byte(raw), nil
	case raw != "":
		return nil, errors.New("csrf key must be 64 hex characters or 32 bytes")
	case production:
		return nil, ErrCSRFKeyRequired
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate csrf key: %w", err)
	}
	slog.Warn("csrf_key_random", "hint", "set STOREFRONT_SECURITY_CSRF_KEY so form tokens survive restarts")
	return key, nil
}

// New wires HTTP handlers for the storefront.
// PRE: deps.Registry and deps.Catalog are set; opts.CSRFKey is 32 bytes
func New(deps Deps, opts Options) *Server {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 20
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = int(opts.RateLimit * 2)
	}
	s := &Server{deps: deps, opts: opts, closing: make(chan struct{})}

	api := http.NewServeMux()
	s.registerRoutes(api)
	if opts.StaticDir != "" {
		api.Handle("GET /", http.FileServer(http.Dir(opts.StaticDir)))
	}

	limiter := middleware.NewRateLimiter(opts.RateLimit, opts.RateBurst)

	root := http.NewServeMux()
	root.Handle("GET /metrics", metrics.Handler())
	root.HandleFunc("GET /healthz", s.handleHealth)
	// RateLimit -> CSRF -> Session -> mux
	root.Handle("/", middleware.Chain(api,
		middleware.Session(opts.CookieSecure),
		middleware.CSRF(opts.CSRFKey, opts.CookieSecure, opts.TrustedOrigins),
		middleware.RateLimit(limiter),
	))

	// Metrics -> Timing -> SecurityHeaders -> root
	s.handler = middleware.Chain(root,
		middleware.SecurityHeaders,
		middleware.Timing(deps.Collector, opts.SlowRequest),
		metrics.InstrumentHandler,
	)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close disconnects every change feed and waits for their goroutines.
// Register it with http.Server.RegisterOnShutdown: Shutdown does not close hijacked connections.
func (s *Server) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.closing)
	}
	s.mu.Unlock()
	s.feeds.Wait()
}

// trackFeed registers a feed connection; false once Close has started.
func (s *Server) trackFeed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.feeds.Add(1)
	return true
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	// catalog
	mux.HandleFunc("GET /api/products", s.handleListProducts)
	mux.HandleFunc("GET /api/products/{slug}", s.handleGetProduct)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/service-options", s.handleServiceOptions)
	mux.HandleFunc("GET /api/pricing", s.handlePricing)

	// compare
	mux.HandleFunc("GET /api/compare", s.handleCompareList)
	mux.HandleFunc("POST /api/compare", s.handleCompareAdd)
	mux.HandleFunc("POST /api/compare/toggle", s.handleCompareToggle)
	mux.HandleFunc("GET /api/compare/{id}", s.handleCompareStatus)
	mux.HandleFunc("DELETE /api/compare/{id}", s.handleCompareRemove)
	mux.HandleFunc("DELETE /api/compare", s.handleCompareClear)

	// favorites
	mux.HandleFunc("GET /api/favorites", s.handleFavoritesList)
	mux.HandleFunc("POST /api/favorites", s.handleFavoritesAdd)
	mux.HandleFunc("POST /api/favorites/toggle", s.handleFavoritesToggle)
	mux.HandleFunc("GET /api/favorites/{id}", s.handleFavoriteStatus)
	mux.HandleFunc("DELETE /api/favorites/{id}", s.handleFavoritesRemove)
	mux.HandleFunc("DELETE /api/favorites", s.handleFavoritesClear)

	// services
	mux.HandleFunc("GET /api/services", s.handleServicesList)
	mux.HandleFunc("GET /api/services/total", s.handleServicesTotal)
	mux.HandleFunc("POST /api/services", s.handleServicesAdd)
	mux.HandleFunc("DELETE /api/services/{id}", s.handleServicesRemove)
	mux.HandleFunc("DELETE /api/services", s.handleServicesClear)

	// user
	mux.HandleFunc("GET /api/user", s.handleUserGet)
	mux.HandleFunc("POST /api/user/login", s.handleUserLogin)
	mux.HandleFunc("POST /api/user/logout", s.handleUserLogout)
	mux.HandleFunc("PATCH /api/user", s.handleUserUpdate)

	// cart
	mux.HandleFunc("GET /api/cart", s.handleCartGet)
	mux.HandleFunc("POST /api/cart", s.handleCartAdd)
	mux.HandleFunc("PATCH /api/cart/{productId}", s.handleCartQuantity)
	mux.HandleFunc("DELETE /api/cart/{productId}", s.handleCartRemove)
	mux.HandleFunc("DELETE /api/cart", s.handleCartClear)
	mux.HandleFunc("POST /api/cart/{productId}/services", s.handleCartAddService)
	mux.HandleFunc("DELETE /api/cart/{productId}/services/{serviceId}", s.handleCartRemoveService)

	// addresses
	mux.HandleFunc("GET /api/addresses", s.handleAddressList)
	mux.HandleFunc("POST /api/addresses", s.handleAddressAdd)
	mux.HandleFunc("PATCH /api/addresses/{id}", s.handleAddressUpdate)
	mux.HandleFunc("DELETE /api/addresses/{id}", s.handleAddressDelete)
	mux.HandleFunc("POST /api/addresses/{id}/default", s.handleAddressDefault)

	// orders
	mux.HandleFunc("GET /api/orders", s.handleOrderList)
	mux.HandleFunc("POST /api/orders", s.handleCheckout)
	mux.HandleFunc("GET /api/orders/{id}", s.handleOrderGet)
	mux.HandleFunc("PATCH /api/orders/{id}/status", s.handleOrderStatus)

	// whole-session state
	mux.HandleFunc("GET /api/state", s.handleStateExport)
	mux.HandleFunc("POST /api/state/import", s.handleStateImport)
	mux.HandleFunc("DELETE /api/state", s.handleStateForget)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/csrf", s.handleCSRFToken)

	// operator
	mux.HandleFunc("GET /api/admin/outbox", s.requireAdmin(s.handleAdminOutboxList))
	mux.HandleFunc("POST /api/admin/outbox/{id}/retry", s.requireAdmin(s.handleAdminOutboxRetry))
	mux.HandleFunc("POST /api/admin/outbox/{id}/abandon", s.requireAdmin(s.handleAdminOutboxAbandon))
	mux.HandleFunc("GET /debug/perf", s.requireAdmin(s.handlePerf))
}
