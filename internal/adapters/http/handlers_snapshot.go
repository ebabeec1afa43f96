package web

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"

	"github.com/tidwall/gjson"

	"storefront/internal/adapters/http/middleware"
	"storefront/internal/state"
)

// handleStateExport serves GET /api/state: every container keyed by namespace,
// in the shape the browser kept in local storage.
func (s *Server) handleStateExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Export())
}

// handleStateImport serves POST /api/state/import.
// The body is an object keyed by namespace. Each value is a snapshot object,
// or the string local storage held for it. Namespaces not present are left alone.
// PRE: every key names a known namespace and every value holds a JSON object
// POST: the listed containers hold the imported snapshots; a malformed entry is rejected before any is applied
func (s *Server) handleStateImport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		http.Error(w, "body must be an object keyed by namespace", http.StatusBadRequest)
		return
	}

	snapshots, err := parseImport(body)
	if err != nil {
		writeError(w, err)
		return
	}
	imported, err := sess.ImportAll(r.Context(), snapshots)
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("state_imported", "scope", sess.Scope[:12], "namespaces", imported)
	writeJSON(w, http.StatusOK, map[string]any{"imported": imported, "state": sess.Export()})
}

// parseImport unwraps each namespace's snapshot and checks its shape.
// Typed decoding happens in Session.ImportAll.
func parseImport(body []byte) (map[string][]byte, error) {
	out := make(map[string][]byte)
	var err error
	gjson.ParseBytes(body).ForEach(func(key, value gjson.Result) bool {
		ns := key.String()
		if !slices.Contains(state.Namespaces, ns) {
			err = fmt.Errorf("%w: %q", state.ErrUnknownNamespace, ns)
			return false
		}
		raw := []byte(value.Raw)
		if value.Type == gjson.String {
			raw = []byte(value.Str)
		}
		doc := gjson.ParseBytes(raw)
		if inner := doc.Get("state"); !gjson.ValidBytes(raw) || !doc.IsObject() || (inner.Exists() && !inner.IsObject()) {
			err = fmt.Errorf("%w: %s", state.ErrMalformedSnapshot, ns)
			return false
		}
		out[ns] = raw
		return true
	})
	return out, err
}

// handleStateForget serves DELETE /api/state: durable state is erased and the
// session cookie dropped, so the next request starts a fresh visitor.
func (s *Server) handleStateForget(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.TokenFromContext(r.Context())
	if !ok {
		http.Error(w, "no session", http.StatusBadRequest)
		return
	}
	if err := s.deps.Registry.Forget(r.Context(), token); err != nil {
		internalError(w, err)
		return
	}
	middleware.ClearSessionCookie(w, s.opts.CookieSecure)
	slog.Info("state_forgotten", "scope", state.ScopeKey(token)[:12])
	w.WriteHeader(http.StatusNoContent)
}
