package web

import (
	"log/slog"
	"net/http"
	"strconv"

	"storefront/internal/domain/outbox"
)

// handleAdminOutboxList serves GET /api/admin/outbox?status=failed|pending&limit=.
// failed lists entries that exhausted their attempts; pending lists everything still queued.
func (s *Server) handleAdminOutboxList(w http.ResponseWriter, r *http.Request) {
	if s.deps.Outbox == nil {
		http.NotFound(w, r)
		return
	}
	limit := 50
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 && n <= 100 {
		limit = n
	}

	var (
		entries []outbox.Entry
		err     error
	)
	switch status := r.URL.Query().Get("status"); status {
	case "", outbox.StatusFailed:
		entries, err = s.deps.Outbox.ListFailed(r.Context(), limit)
	case outbox.StatusPending:
		entries, err = s.deps.Outbox.ListPending(r.Context(), limit)
	default:
		http.Error(w, "status must be failed or pending", http.StatusBadRequest)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	if entries == nil {
		entries = []outbox.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// handleAdminOutboxRetry serves POST /api/admin/outbox/{id}/retry: one attempt now, ignoring backoff.
func (s *Server) handleAdminOutboxRetry(w http.ResponseWriter, r *http.Request) {
	if s.deps.Processor == nil {
		http.NotFound(w, r)
		return
	}
	id := r.PathValue("id")
	if err := s.deps.Processor.ProcessSingle(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	entry, err := s.deps.Outbox.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("outbox_manual_retry", "entry_id", id, "status", entry.Status)
	writeJSON(w, http.StatusOK, entry)
}

// handleAdminOutboxAbandon serves POST /api/admin/outbox/{id}/abandon.
func (s *Server) handleAdminOutboxAbandon(w http.ResponseWriter, r *http.Request) {
	if s.deps.Processor == nil {
		http.NotFound(w, r)
		return
	}
	id := r.PathValue("id")
	if err := s.deps.Processor.AbandonEntry(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	slog.Info("outbox_entry_abandoned", "entry_id", id)
	w.WriteHeader(http.StatusNoContent)
}
