package history

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

// defaultPageSize bounds /history responses when no limit is given.
const defaultPageSize = 50

// Handler exposes the phrase archive over HTTP:
//
//   - GET /history?limit=N          — the N most recent phrases
//   - GET /history/search?q=...     — full-text search over the archive
//
// Responses are JSON arrays of [Entry].
type Handler struct {
	store Store
	log   *slog.Logger
}

// NewHandler creates a Handler serving from store. A nil logger falls back to
// [slog.Default].
func NewHandler(store Store, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{store: store, log: log}
}

// Register adds the history routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /history", h.recent)
	mux.HandleFunc("GET /history/search", h.search)
}

func (h *Handler) recent(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"))

	entries, err := h.store.Recent(r.Context(), limit)
	if err != nil {
		h.log.Warn("history read failed", "error", err)
		http.Error(w, `{"error":"history unavailable"}`, http.StatusInternalServerError)
		return
	}
	writeEntries(w, entries)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, `{"error":"missing query parameter q"}`, http.StatusBadRequest)
		return
	}
	limit := parseLimit(r.URL.Query().Get("limit"))

	entries, err := h.store.Search(r.Context(), query, limit)
	if err != nil {
		h.log.Warn("history search failed", "error", err, "query", query)
		http.Error(w, `{"error":"history unavailable"}`, http.StatusInternalServerError)
		return
	}
	writeEntries(w, entries)
}

// parseLimit clamps the limit query parameter to a sane positive value.
func parseLimit(raw string) int {
	if raw == "" {
		return defaultPageSize
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultPageSize
	}
	return n
}

func writeEntries(w http.ResponseWriter, entries []Entry) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if entries == nil {
		entries = []Entry{}
	}
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}
