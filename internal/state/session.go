package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"storefront/internal/adapters/http/perf"
	"storefront/internal/adapters/storage/kv"
	"storefront/internal/domain/addon"
	"storefront/internal/domain/address"
	"storefront/internal/domain/cart"
	"storefront/internal/domain/compare"
	"storefront/internal/domain/favorite"
	"storefront/internal/domain/order"
	"storefront/internal/domain/user"
	"storefront/internal/metrics"
)

var ErrUnknownNamespace = errors.New("unknown state namespace")

// Session is the bundle of state containers owned by one visitor.
type Session struct {
	Scope     string
	Hub       *Hub
	Compare   *CompareStore
	Favorites *FavoritesStore
	Services  *ServiceStore
	User      *UserStore
	Cart      *CartStore
	Addresses *AddressStore
	Orders    *OrderStore

	checkout sync.Mutex
	lastUsed atomic.Int64
}

// LockCheckout serializes checkouts of one session and returns the unlock func.
func (s *Session) LockCheckout() func() {
	s.checkout.Lock()
	return s.checkout.Unlock
}

func (s *Session) touch(now time.Time) {
	s.lastUsed.Store(now.UnixNano())
}

// Export returns every container's current state keyed by namespace.
func (s *Session) Export() map[string]json.RawMessage {
	return map[string]json.RawMessage{
		NamespaceCompare:   s.Compare.p.Raw(),
		NamespaceFavorites: s.Favorites.p.Raw(),
		NamespaceServices:  s.Services.p.Raw(),
		NamespaceUser:      s.User.p.Raw(),
		NamespaceCart:      s.Cart.p.Raw(),
		NamespaceAddress:   s.Addresses.p.Raw(),
		NamespaceOrder:     s.Orders.p.Raw(),
	}
}

// Current returns every container's state with its latest Seq, in Namespaces order.
func (s *Session) Current() []Change {
	return []Change{
		s.Compare.p.Current(),
		s.Favorites.p.Current(),
		s.Services.p.Current(),
		s.User.p.Current(),
		s.Cart.p.Current(),
		s.Addresses.p.Current(),
		s.Orders.p.Current(),
	}
}

// Import replaces one container with a snapshot exported from browser local
// storage or from Export. Both the enveloped and the bare form are accepted.
// PRE: namespace is one of Namespaces
// POST: the container holds the normalized snapshot; a Change is published when it differs
func (s *Session) Import(ctx context.Context, namespace string, raw []byte) error {
	apply, err := s.stage(ctx, namespace, raw)
	if err != nil {
		return err
	}
	apply()
	return nil
}

// ImportAll replaces every container named in snapshots. All snapshots are
// decoded before the first one is applied, so an error leaves every container
// as it was. The applied namespaces are returned in Namespaces order.
// POST: on error no container has changed
func (s *Session) ImportAll(ctx context.Context, snapshots map[string][]byte) ([]string, error) {
	for ns := range snapshots {
		if !slices.Contains(Namespaces, ns) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownNamespace, ns)
		}
	}
	applies := make([]func(), 0, len(snapshots))
	imported := make([]string, 0, len(snapshots))
	for _, ns := range Namespaces {
		raw, ok := snapshots[ns]
		if !ok {
			continue
		}
		apply, err := s.stage(ctx, ns, raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ns, err)
		}
		applies = append(applies, apply)
		imported = append(imported, ns)
	}
	for _, apply := range applies {
		apply()
	}
	return imported, nil
}

// stage decodes raw for namespace and returns the replacement to run later.
func (s *Session) stage(ctx context.Context, namespace string, raw []byte) (func(), error) {
	switch namespace {
	case NamespaceCompare:
		return stageInto(ctx, s.Compare.p, raw)
	case NamespaceFavorites:
		return stageInto(ctx, s.Favorites.p, raw)
	case NamespaceServices:
		return stageInto(ctx, s.Services.p, raw)
	case NamespaceUser:
		return stageInto(ctx, s.User.p, raw)
	case NamespaceCart:
		return stageInto(ctx, s.Cart.p, raw)
	case NamespaceAddress:
		return stageInto(ctx, s.Addresses.p, raw)
	case NamespaceOrder:
		return stageInto(ctx, s.Orders.p, raw)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownNamespace, namespace)
}

func stageInto[S Cloner[S]](ctx context.Context, p *Persisted[S], raw []byte) (func(), error) {
	snap, err := DecodeSnapshot[S](raw)
	if err != nil {
		return nil, err
	}
	return func() { p.Replace(ctx, snap) }, nil
}

// Options configure the containers of every session.
type Options struct {
	ComparePolicy compare.Policy
	IssueUserID   IDIssuer
	Now           func() time.Time
	Collector     *perf.Collector
	WriteTimeout  time.Duration
	IdleTTL       time.Duration // in-memory bundles unused this long are dropped
	SweepInterval time.Duration
}

func (o *Options) defaults() {
	if o.ComparePolicy == "" {
		o.ComparePolicy = compare.PolicyIgnore
	}
	if o.IssueUserID == nil {
		o.IssueUserID = DefaultIDIssuer
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.IdleTTL <= 0 {
		o.IdleTTL = 30 * time.Minute
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = time.Minute
	}
}

// Registry opens session bundles lazily and keeps them in memory while used.
// Durable state outlives the in-memory bundle; a later access rehydrates it.
type Registry struct {
	store kv.Store
	opts  Options

	mu       sync.Mutex
	sessions map[string]*Session
	group    singleflight.Group
}

func NewRegistry(store kv.Store, opts Options) *Registry {
	opts.defaults()
	return &Registry{
		store:    store,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Session returns the bundle for token, opening it on first access.
// Concurrent first accesses for the same token share a single load.
// PRE: token is non-empty
func (r *Registry) Session(ctx context.Context, token string) (*Session, error) {
	scope := ScopeKey(token)

	r.mu.Lock()
	s, ok := r.sessions[scope]
	r.mu.Unlock()
	if ok {
		s.touch(r.opts.Now())
		return s, nil
	}

	v, err, _ := r.group.Do(scope, func() (any, error) {
		r.mu.Lock()
		if s, ok := r.sessions[scope]; ok {
			r.mu.Unlock()
			return s, nil
		}
		r.mu.Unlock()

		s, err := r.open(ctx, scope)
		if err != nil {
			return nil, err
		}
		s.touch(r.opts.Now())
		r.mu.Lock()
		r.sessions[scope] = s
		r.mu.Unlock()
		metrics.SessionOpened()
		slog.Debug("session_opened", "scope", scope[:12])
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	s = v.(*Session)
	s.touch(r.opts.Now())
	return s, nil
}

// open reads every namespace of scope in one call and rehydrates the containers.
// A failed read is logged and yields empty containers; only a cancelled
// context aborts the open.
func (r *Registry) open(ctx context.Context, scope string) (*Session, error) {
	stored, readErr := r.store.List(ctx, scope)
	if readErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("open session: %w", ctxErr)
		}
		stored = map[string][]byte{}
	}

	b := &backend{
		store:        r.store,
		scope:        scope,
		hub:          &Hub{},
		collector:    r.opts.Collector,
		writeTimeout: r.opts.WriteTimeout,
		now:          r.opts.Now,
	}
	raw := func(ns string) []byte { return stored[ns] }

	return &Session{
		Scope: scope,
		Hub:   b.hub,
		Compare: &CompareStore{
			p:      rehydrate(b, NamespaceCompare, raw(NamespaceCompare), readErr, emptyCompare, normalizeCompare),
			policy: r.opts.ComparePolicy,
		},
		Favorites: &FavoritesStore{
			p: rehydrate(b, NamespaceFavorites, raw(NamespaceFavorites), readErr, emptyFavorites, normalizeFavorites),
		},
		Services: &ServiceStore{
			p: rehydrate(b, NamespaceServices, raw(NamespaceServices), readErr, emptyServices, normalizeServices),
		},
		User: &UserStore{
			p:     rehydrate(b, NamespaceUser, raw(NamespaceUser), readErr, emptyUser, normalizeUser),
			issue: r.opts.IssueUserID,
		},
		Cart: &CartStore{
			p:   rehydrate(b, NamespaceCart, raw(NamespaceCart), readErr, emptyCart, normalizeCart),
			now: r.opts.Now,
		},
		Addresses: &AddressStore{
			p:   rehydrate(b, NamespaceAddress, raw(NamespaceAddress), readErr, emptyAddresses, normalizeAddresses),
			now: r.opts.Now,
		},
		Orders: &OrderStore{
			p:   rehydrate(b, NamespaceOrder, raw(NamespaceOrder), readErr, emptyOrders, normalizeOrders),
			now: r.opts.Now,
		},
	}, nil
}

// Forget deletes all durable state for token and drops its bundle.
// Subscribers of the dropped bundle stop receiving events.
func (r *Registry) Forget(ctx context.Context, token string) error {
	scope := ScopeKey(token)
	if err := r.store.DeleteScope(ctx, scope); err != nil {
		return fmt.Errorf("forget session: %w", err)
	}
	r.mu.Lock()
	_, ok := r.sessions[scope]
	delete(r.sessions, scope)
	r.mu.Unlock()
	if ok {
		metrics.SessionClosed()
	}
	return nil
}

// Len returns the number of bundles held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops bundles idle for longer than IdleTTL. Bundles with live
// subscribers are kept regardless of age.
func (r *Registry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.opts.IdleTTL).UnixNano()
	dropped := 0
	r.mu.Lock()
	for scope, s := range r.sessions {
		if s.lastUsed.Load() < cutoff && s.Hub.Len() == 0 {
			delete(r.sessions, scope)
			dropped++
		}
	}
	r.mu.Unlock()
	for range dropped {
		metrics.SessionClosed()
	}
	if dropped > 0 {
		slog.Debug("session_sweep", "dropped", dropped)
	}
	return dropped
}

// Run sweeps idle bundles every SweepInterval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep(r.opts.Now())
		}
	}
}

// compile-time checks that every snapshot type satisfies Cloner.
var (
	_ Cloner[compare.List]    = compare.List{}
	_ Cloner[favorite.Set]    = favorite.Set{}
	_ Cloner[addon.Selection] = addon.Selection{}
	_ Cloner[user.State]      = user.State{}
	_ Cloner[cart.Cart]       = cart.Cart{}
	_ Cloner[address.Book]    = address.Book{}
	_ Cloner[order.History]   = order.History{}
)
