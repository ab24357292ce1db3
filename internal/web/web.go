// Package web exposes the calendar engine over a small JSON API: the
// month view, event CRUD, fired reminders, and ICS export/import. It
// holds no state of its own; every user intent is forwarded to the
// store, and navigation is plain month arithmetic on the client.
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"minical/internal/config"
	"minical/internal/ics"
	appLog "minical/internal/log"
	"minical/internal/model"
	"minical/internal/remind"
	"minical/internal/store"
	"minical/internal/view"
)

// Server wires HTTP routes to the event store and reminder recorder.
type Server struct {
	cfg      *config.Config
	store    *store.Store
	recorder *remind.Recorder
	router   *mux.Router
	now      func() time.Time
}

// NewServer constructs a Server over the given collaborators.
func NewServer(cfg *config.Config, st *store.Store, rec *remind.Recorder) *Server {
	s := &Server{
		cfg:      cfg,
		store:    st,
		recorder: rec,
		router:   mux.NewRouter(),
		now:      time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	s.router.HandleFunc("/api/month", s.handleMonth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/events", s.handleCreate).Methods(http.MethodPost)
	s.router.HandleFunc("/api/events/{id}", s.handleGet).Methods(http.MethodGet)
	s.router.HandleFunc("/api/events/{id}", s.handleUpdate).Methods(http.MethodPut)
	s.router.HandleFunc("/api/events/{id}", s.handleDelete).Methods(http.MethodDelete)
	s.router.HandleFunc("/api/reminders", s.handleReminders).Methods(http.MethodGet)

	s.router.HandleFunc("/export.ics", s.handleExport).Methods(http.MethodGet)
	s.router.HandleFunc("/import.ics", s.handleImport).Methods(http.MethodPost)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleMonth renders one month of the calendar.
//
// GET /api/month?year=2025&month=7&q=standup
//   - year/month default to the current month in the configured
//     timezone; month is 1-based.
//   - q is an optional case-insensitive search over name/description.
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	loc := s.location()
	now := s.now().In(loc)

	q := r.URL.Query()
	year := parseIntDefault(q.Get("year"), now.Year())
	monthNum := parseIntDefault(q.Get("month"), int(now.Month()))
	if monthNum < 1 || monthNum > 12 {
		writeError(w, http.StatusBadRequest, "month must be between 1 and 12")
		return
	}

	m := view.Build(s.store.All(), year, time.Month(monthNum), q.Get("q"), model.FromTime(now))
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var draft model.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event payload: "+err.Error())
		return
	}

	ev, err := s.store.Add(r.Context(), draft)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	ev, err := s.store.Get(mux.Vars(r)["id"])
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var draft model.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event payload: "+err.Error())
		return
	}

	ev, err := s.store.Update(r.Context(), mux.Vars(r)["id"], draft)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Remove(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReminders(w http.ResponseWriter, _ *http.Request) {
	if s.recorder == nil {
		writeJSON(w, http.StatusOK, []remind.Delivery{})
		return
	}
	writeJSON(w, http.StatusOK, s.recorder.Recent())
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="minical.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(ics.Export(s.store.All())))
}

// handleImport accepts an ICS payload and adds every representable
// VEVENT through the store, so validation and reminder side effects
// apply per event.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	res, err := ics.Import(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ICS payload: "+err.Error())
		return
	}

	type importResponse struct {
		Imported int `json:"imported"`
		Skipped  int `json:"skipped"`
		Rejected int `json:"rejected"`
	}
	resp := importResponse{Skipped: res.Skipped}
	for _, draft := range res.Drafts {
		if _, err := s.store.Add(r.Context(), draft); err != nil {
			if errors.Is(err, store.ErrPersist) {
				s.writeStoreError(w, err)
				return
			}
			resp.Rejected++
			continue
		}
		resp.Imported++
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeStoreError maps the store's error taxonomy onto HTTP statuses:
// validation -> 400, unknown ID -> 404, lost durability -> 502.
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrPersist):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func (s *Server) location() *time.Location {
	if s.cfg == nil || s.cfg.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(s.cfg.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", s.cfg.Timezone)
		return time.Local
	}
	return loc
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
