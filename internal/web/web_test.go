package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minical/internal/config"
	"minical/internal/model"
	"minical/internal/remind"
	"minical/internal/storage"
	"minical/internal/store"
	"minical/internal/view"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	backend := storage.NewFile(filepath.Join(t.TempDir(), "index.json"))
	st, err := store.Open(context.Background(), backend)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	return NewServer(cfg, st, remind.NewRecorder(0)), st
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func standupDraft() map[string]any {
	return map[string]any{
		"name":      "Standup",
		"startDate": "2025-06-10",
		"endDate":   "2025-06-10",
		"startTime": "09:00",
		"endTime":   "09:30",
		"isAllDay":  false,
		"repeat":    "weekly",
		"color":     "blue",
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestCreateGetDeleteEvent(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/events", standupDraft())
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[model.Event](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Standup", created.Name)
	assert.Equal(t, model.RepeatWeekly, created.Repeat)

	rec = doJSON(t, s, http.MethodGet, "/api/events/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	fetched := decode[model.Event](t, rec)
	assert.Equal(t, created, fetched)

	rec = doJSON(t, s, http.MethodDelete, "/api/events/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/events/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateValidationError(t *testing.T) {
	s, st := newTestServer(t)

	draft := standupDraft()
	draft["name"] = ""
	rec := doJSON(t, s, http.MethodPost, "/api/events", draft)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, st.Len())

	body := decode[map[string]string](t, rec)
	assert.Contains(t, body["error"], "name")
}

func TestUpdateMovesEvent(t *testing.T) {
	s, st := newTestServer(t)

	created := decode[model.Event](t, doJSON(t, s, http.MethodPost, "/api/events", standupDraft()))

	draft := standupDraft()
	draft["startDate"] = "2025-07-01"
	draft["endDate"] = "2025-07-01"
	rec := doJSON(t, s, http.MethodPut, "/api/events/"+created.ID, draft)
	require.Equal(t, http.StatusOK, rec.Code)

	idx := st.All()
	_, oldBucket := idx["2025-06-10"]
	assert.False(t, oldBucket)
	assert.Len(t, idx["2025-07-01"], 1)
}

func TestUpdateUnknownIDIs404(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodPut, "/api/events/nope", standupDraft())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMonthViewWithSearch(t *testing.T) {
	s, _ := newTestServer(t)
	require.Equal(t, http.StatusCreated,
		doJSON(t, s, http.MethodPost, "/api/events", standupDraft()).Code)

	rec := doJSON(t, s, http.MethodGet, "/api/month?year=2025&month=7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	m := decode[view.Month](t, rec)
	require.Len(t, m.Cells, 31)
	// July 1, 2025 is a Tuesday; the weekly standup recurs there.
	require.NotEmpty(t, m.Cells[0].Items)
	assert.Equal(t, "9:00 AM Standup", m.Cells[0].Items[0].Label)
	assert.True(t, m.Cells[0].Items[0].Derived)

	rec = doJSON(t, s, http.MethodGet, "/api/month?year=2025&month=7&q=zzz", nil)
	m = decode[view.Month](t, rec)
	assert.Equal(t, view.EmptyNoMatches, m.Empty)

	rec = doJSON(t, s, http.MethodGet, "/api/month?year=2025&month=13", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportAndImport(t *testing.T) {
	s, st := newTestServer(t)
	require.Equal(t, http.StatusCreated,
		doJSON(t, s, http.MethodPost, "/api/events", standupDraft()).Code)

	rec := doJSON(t, s, http.MethodGet, "/export.ics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/calendar")
	payload := rec.Body.String()
	assert.Contains(t, payload, "SUMMARY:Standup")

	// Importing the export back doubles the event count.
	req := httptest.NewRequest(http.MethodPost, "/import.ics", strings.NewReader(payload))
	resp := httptest.NewRecorder()
	s.Handler().ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 2, st.Len())
}

func TestRemindersEndpoint(t *testing.T) {
	recorder := remind.NewRecorder(0)
	backend := storage.NewFile(filepath.Join(t.TempDir(), "index.json"))
	st, err := store.Open(context.Background(), backend)
	require.NoError(t, err)
	s := NewServer(config.DefaultConfig(), st, recorder)

	recorder.Notify(`Reminder: Event "Standup" is starting now at 9:00 AM!`)

	rec := doJSON(t, s, http.MethodGet, "/api/reminders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	deliveries := decode[[]remind.Delivery](t, rec)
	require.Len(t, deliveries, 1)
	assert.Contains(t, deliveries[0].Message, "Standup")
}
