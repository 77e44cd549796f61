package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"seminargo/internal/app"
	"seminargo/internal/domain"
)

type Handlers struct {
	Engine *app.Engine
	Q      *app.QueryService
	Dedupe *app.Deduper
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Post("/v1/sync/start", h.startSync)
	s.mux.Post("/v1/sync/cancel", h.cancelSync)
	s.mux.Get("/v1/sync/progress", h.progress)
	s.mux.Get("/v1/sync/history", h.history)
	s.mux.Get("/v1/sync/duplicates", h.listDuplicates)
	s.mux.Post("/v1/sync/duplicates/cleanup", h.cleanupDuplicates)
	s.mux.Get("/v1/hotels", h.listHotels)
	s.mux.Get("/v1/hotels/{external_id}", h.getHotel)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		// Log but don't fail the whole response; return empty ETag and best-effort body.
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func (h *Handlers) startSync(w http.ResponseWriter, r *http.Request) {
	t := domain.SyncIncremental
	switch r.URL.Query().Get("type") {
	case "", "incremental":
	case "full":
		t = domain.SyncFull
	default:
		writeProblem(w, http.StatusBadRequest, "Invalid type", "type must be full or incremental")
		return
	}

	err := h.Engine.Start(r.Context(), t)
	switch {
	case errors.Is(err, domain.ErrRunActive):
		writeProblem(w, http.StatusConflict, "Sync Already Running", "a sync run is already in progress")
		return
	case err != nil:
		log.Error().Err(err).Msg("start sync failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "could not start sync")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started", "type": string(t)})
}

func (h *Handlers) cancelSync(w http.ResponseWriter, r *http.Request) {
	err := h.Engine.Cancel(r.Context())
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "no sync run in progress")
		return
	case err != nil:
		log.Error().Err(err).Msg("cancel sync failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "could not cancel sync")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *Handlers) progress(w http.ResponseWriter, r *http.Request) {
	tail := 50
	if ts := r.URL.Query().Get("log"); ts != "" {
		n, err := strconv.Atoi(ts)
		if err != nil || n < 0 || n > 500 {
			writeProblem(w, http.StatusBadRequest, "Invalid log", "log must be an integer between 0 and 500")
			return
		}
		tail = n
	}

	view, err := h.Q.Progress(r.Context(), tail)
	if err != nil {
		log.Error().Err(err).Msg("load sync progress failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "could not load progress")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handlers) history(w http.ResponseWriter, r *http.Request) {
	hist, err := h.Q.History(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("load sync history failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "could not load history")
		return
	}
	if hist == nil {
		hist = []domain.RunArchive{}
	}
	writeJSON(w, http.StatusOK, hist)
}

func (h *Handlers) listDuplicates(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Dedupe.FindDuplicates(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("find duplicates failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "could not scan for duplicates")
		return
	}
	if groups == nil {
		groups = []domain.DuplicateGroup{}
	}
	writeJSON(w, http.StatusOK, groups)
}

func (h *Handlers) cleanupDuplicates(w http.ResponseWriter, r *http.Request) {
	// destructive unless dry_run=1; default is the safe preview
	dryRun := true
	switch r.URL.Query().Get("dry_run") {
	case "", "1", "true":
	case "0", "false":
		dryRun = false
	default:
		writeProblem(w, http.StatusBadRequest, "Invalid dry_run", "dry_run must be a boolean")
		return
	}

	rep, err := h.Dedupe.Cleanup(r.Context(), dryRun)
	if err != nil {
		log.Error().Err(err).Msg("duplicate cleanup failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "could not clean duplicates")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handlers) listHotels(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 500 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 500")
			return
		}
		limit = l
	}

	hotels, err := h.Q.ListHotels(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("list hotels failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "could not list hotels")
		return
	}
	if hotels == nil {
		hotels = []domain.HotelRecord{}
	}

	etag, body := calcETagAndBody(hotels)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write listHotels body")
	}
}

func (h *Handlers) getHotel(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Q.GetHotel(r.Context(), chi.URLParam(r, "external_id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "hotel not found")
			return
		}
		log.Error().Err(err).Msg("get hotel failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "could not load hotel")
		return
	}

	etag, body := calcETagAndBody(rec)
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write getHotel body")
	}
}
