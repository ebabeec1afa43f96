package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"storefront/internal/adapters/http/perf"
	"storefront/internal/adapters/storage/kv"
	"storefront/internal/metrics"
)

// ErrMalformedSnapshot is returned when persisted or imported JSON cannot be decoded.
var ErrMalformedSnapshot = errors.New("malformed state snapshot")

// Cloner is implemented by every state container snapshot.
// Clone must return a value sharing no mutable memory with the receiver.
type Cloner[S any] interface {
	Clone() S
}

// envelope is the persisted wire shape, identical to what the storefront's
// browser stores write to local storage.
type envelope struct {
	State   json.RawMessage `json:"state"`
	Version int             `json:"version"`
}

// DecodeSnapshot parses raw into S. It accepts either the persisted envelope
// {"state": ..., "version": 0} or the bare snapshot object.
func DecodeSnapshot[S any](raw []byte) (S, error) {
	var s S
	if !gjson.ValidBytes(raw) {
		return s, fmt.Errorf("%w: invalid json", ErrMalformedSnapshot)
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return s, fmt.Errorf("%w: expected an object", ErrMalformedSnapshot)
	}
	body := raw
	if inner := doc.Get("state"); inner.Exists() {
		if !inner.IsObject() {
			return s, fmt.Errorf("%w: state is not an object", ErrMalformedSnapshot)
		}
		body = []byte(inner.Raw)
	}
	if err := json.Unmarshal(body, &s); err != nil {
		return s, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	return s, nil
}

// backend bundles what every container of a session shares.
type backend struct {
	store        kv.Store
	scope        string
	hub          *Hub
	collector    *perf.Collector
	writeTimeout time.Duration
	now          func() time.Time
}

// Persisted is a state container whose snapshot is written to the kv store
// after every committed mutation and announced on the session hub.
type Persisted[S Cloner[S]] struct {
	mu        sync.Mutex
	namespace string
	b         *backend
	normalize func(S) S
	state     S
	raw       json.RawMessage
	seq       uint64
}

// rehydrate builds a container from the stored value. Absent, unreadable or
// malformed data yields def(); the failure is logged and never surfaced.
func rehydrate[S Cloner[S]](b *backend, namespace string, stored []byte, readErr error, def func() S, normalize func(S) S) *Persisted[S] {
	if normalize == nil {
		normalize = func(s S) S { return s }
	}
	p := &Persisted[S]{namespace: namespace, b: b, normalize: normalize}

	s := def()
	switch {
	case readErr != nil:
		slog.Warn("state_load_failed", "namespace", namespace, "error", readErr)
		metrics.RecordLoadFallback(namespace, "read_error")
	case stored != nil:
		decoded, err := DecodeSnapshot[S](stored)
		if err != nil {
			slog.Warn("state_load_malformed", "namespace", namespace, "error", err)
			metrics.RecordLoadFallback(namespace, "malformed")
		} else {
			s = normalize(decoded)
		}
	}
	p.state = s
	p.raw, _ = json.Marshal(s)
	return p
}

// Snapshot returns a copy of the current state.
func (p *Persisted[S]) Snapshot() S {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Clone()
}

// Raw returns the current state serialized as JSON.
func (p *Persisted[S]) Raw() json.RawMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append(json.RawMessage(nil), p.raw...)
}

// Current returns the state as a Change carrying the latest Seq.
func (p *Persisted[S]) Current() Change {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Change{
		Namespace: p.namespace,
		Seq:       p.seq,
		State:     append(json.RawMessage(nil), p.raw...),
		At:        p.b.now().UTC(),
	}
}

func (p *Persisted[S]) Namespace() string {
	return p.namespace
}

// Update applies fn to a copy of the state. When fn reports a change and no
// error, the copy becomes the state, is written to the store and a Change is
// published; all before Update returns. fn's error is returned unchanged and
// leaves the state untouched.
// POST: the returned snapshot is the state after the call
func (p *Persisted[S]) Update(ctx context.Context, fn func(*S) (bool, error)) (S, error) {
	p.mu.Lock()
	next := p.state.Clone()
	changed, err := fn(&next)
	if err != nil || !changed {
		out := p.state.Clone()
		p.mu.Unlock()
		return out, err
	}
	change := p.commit(ctx, next)
	out := p.state.Clone()
	p.mu.Unlock()

	p.b.hub.Publish(change)
	return out, nil
}

// Replace swaps in s wholesale, normalized, used by snapshot import.
// Replacing with an identical snapshot publishes nothing.
func (p *Persisted[S]) Replace(ctx context.Context, s S) S {
	s = p.normalize(s.Clone())
	p.mu.Lock()
	encoded, _ := json.Marshal(s)
	if string(encoded) == string(p.raw) {
		out := p.state.Clone()
		p.mu.Unlock()
		return out
	}
	change := p.commit(ctx, s)
	out := p.state.Clone()
	p.mu.Unlock()

	p.b.hub.Publish(change)
	return out
}

// commit installs next and persists it.
// PRE: p.mu is held
func (p *Persisted[S]) commit(ctx context.Context, next S) Change {
	p.state = next
	p.seq++
	raw, err := json.Marshal(next)
	if err != nil {
		slog.Error("state_encode_failed", "namespace", p.namespace, "error", err)
	} else {
		p.raw = raw
		p.persist(ctx, raw)
	}
	metrics.RecordMutation(p.namespace)
	return Change{
		Namespace: p.namespace,
		Seq:       p.seq,
		State:     append(json.RawMessage(nil), p.raw...),
		At:        p.b.now().UTC(),
	}
}

// persist writes the envelope. Failures are logged and counted, not returned:
// the in-memory state stays authoritative for the session.
func (p *Persisted[S]) persist(ctx context.Context, raw json.RawMessage) {
	value, err := json.Marshal(envelope{State: raw, Version: 0})
	if err != nil {
		slog.Error("state_encode_failed", "namespace", p.namespace, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.b.writeTimeout)
	defer cancel()

	start := time.Now()
	err = p.b.store.Put(ctx, p.b.scope, p.namespace, value)
	p.b.collector.Record(perf.Entry{
		Kind:       perf.KindPersist,
		Path:       p.namespace,
		DurationMs: float64(time.Since(start).Microseconds()) / 1000.0,
		Timestamp:  start,
	})
	if err != nil {
		slog.Warn("state_persist_failed", "namespace", p.namespace, "error", err)
		metrics.RecordPersistFailure(p.namespace)
	}
}
