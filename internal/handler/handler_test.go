package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/templui/doin/internal/auth"
	"github.com/templui/doin/internal/clock"
	"github.com/templui/doin/internal/db"
	"github.com/templui/doin/internal/gateway"
	"github.com/templui/doin/internal/model"
	"github.com/templui/doin/internal/repository"
	"github.com/templui/doin/internal/service"
)

type memRemote struct {
	mu        sync.Mutex
	challenge model.Challenge
	rows      []model.Participation
	submitErr error
	nextID    int64
}

func (m *memRemote) Challenge(ctx context.Context, id int64) (*model.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id != m.challenge.ID {
		return nil, gateway.ErrChallengeNotFound
	}
	c := m.challenge
	return &c, nil
}

func (m *memRemote) List(ctx context.Context, id int64) ([]model.Participation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Participation(nil), m.rows...), nil
}

func (m *memRemote) Submit(ctx context.Context, s *model.Submission) (model.SubmitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitErr != nil {
		return model.SubmitResult{}, m.submitErr
	}
	m.nextID++
	pref := s.Prefecture
	m.rows = append(m.rows, model.Participation{
		ID:           m.nextID,
		ChallengeID:  s.ChallengeID,
		TwitterID:    s.TwitterID,
		DisplayName:  s.DisplayName,
		Contribution: s.Contribution,
		Prefecture:   &pref,
		Gender:       s.Gender,
		CreatedAt:    time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
	})
	m.challenge.CurrentValue += s.Contribution
	return model.SubmitResult{ID: m.nextID}, nil
}

func (m *memRemote) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.ID == id {
			m.challenge.CurrentValue -= r.Headcount()
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

func newTestHandler(t *testing.T) (*ChallengeHandler, *memRemote) {
	t.Helper()
	conn, err := db.Init("sqlite", filepath.Join(t.TempDir(), "handler.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(conn) })
	require.NoError(t, db.RunMigrations(context.Background(), conn.DB, "sqlite"))

	remote := &memRemote{challenge: model.Challenge{ID: 3, Title: "Tour final", GoalValue: 20}}
	clk := clock.NewFixed(time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC))
	events := service.NewEventService(remote, gateway.New(remote), repository.NewCacheRepository(conn),
		repository.NewPendingRepository(conn), clk, service.EventOptions{})
	return NewChallengeHandler(events, service.NewJoiner(events, nil)), remote
}

func withIdentity(r *http.Request, id *model.Identity) *http.Request {
	return r.WithContext(auth.WithIdentity(r.Context(), id))
}

func serve(h http.HandlerFunc, pattern string, r *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, r)
	return rec
}

func joinRequest(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/api/challenges/3/participations", strings.NewReader(body))
}

func TestJoinAndStats(t *testing.T) {
	h, _ := newTestHandler(t)
	me := &model.Identity{TwitterID: "tw-9", DisplayName: "Yui"}

	req := withIdentity(joinRequest(`{"prefecture":"北海道","gender":"female","companions":[{"name":"Kai"}]}`), me)
	rec := serve(h.Join, "POST /api/challenges/{id}/participations", req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var joined joinResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &joined))
	assert.Equal(t, int64(1), joined.ID)
	assert.False(t, joined.Queued)

	req = withIdentity(httptest.NewRequest(http.MethodGet, "/api/challenges/3/stats", nil), me)
	rec = serve(h.Stats, "GET /api/challenges/{id}/stats", req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Title           string               `json:"title"`
		CurrentValue    int                  `json:"currentValue"`
		Stale           bool                 `json:"stale"`
		MyParticipation *model.Participation `json:"myParticipation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Tour final", body.Title)
	assert.Equal(t, 2, body.CurrentValue)
	assert.False(t, body.Stale)
	require.NotNil(t, body.MyParticipation)
	assert.Equal(t, "tw-9", body.MyParticipation.TwitterID)
}

func TestJoinErrors(t *testing.T) {
	tests := []struct {
		name      string
		identity  *model.Identity
		body      string
		submitErr error
		status    int
		code      string
	}{
		{
			name:   "anonymous",
			body:   `{"prefecture":"東京都","gender":"male"}`,
			status: http.StatusUnauthorized,
		},
		{
			name:     "bad json",
			identity: &model.Identity{TwitterID: "tw-1"},
			body:     `{`,
			status:   http.StatusBadRequest,
		},
		{
			name:     "missing prefecture",
			identity: &model.Identity{TwitterID: "tw-1"},
			body:     `{"gender":"male"}`,
			status:   http.StatusUnprocessableEntity,
			code:     "missing-prefecture",
		},
		{
			name:      "duplicate",
			identity:  &model.Identity{TwitterID: "tw-1"},
			body:      `{"prefecture":"東京都","gender":"male"}`,
			submitErr: &gateway.SubmissionError{Message: "You have already joined this challenge.", Status: http.StatusConflict},
			status:    http.StatusConflict,
		},
		{
			name:      "store down",
			identity:  &model.Identity{TwitterID: "tw-1"},
			body:      `{"prefecture":"東京都","gender":"male"}`,
			submitErr: &gateway.SubmissionError{Message: "Could not reach the server.", Err: errors.New("dial tcp")},
			status:    http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, remote := newTestHandler(t)
			remote.submitErr = tt.submitErr

			req := joinRequest(tt.body)
			if tt.identity != nil {
				req = withIdentity(req, tt.identity)
			}
			rec := serve(h.Join, "POST /api/challenges/{id}/participations", req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())

			if tt.code != "" {
				var body errorBody
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tt.code, body.Code)
			}
		})
	}
}

func TestStatsNotFound(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := serve(h.Stats, "GET /api/challenges/{id}/stats", httptest.NewRequest(http.MethodGet, "/api/challenges/99/stats", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(h.Stats, "GET /api/challenges/{id}/stats", httptest.NewRequest(http.MethodGet, "/api/challenges/abc/stats", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExports(t *testing.T) {
	h, _ := newTestHandler(t)
	me := &model.Identity{TwitterID: "tw-2", DisplayName: "Rin"}
	rec := serve(h.Join, "POST /api/challenges/{id}/participations",
		withIdentity(joinRequest(`{"prefecture":"沖縄県","gender":"male"}`), me))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(h.ExportCSV, "GET /api/challenges/{id}/export.csv", httptest.NewRequest(http.MethodGet, "/api/challenges/3/export.csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "challenge-3-")
	assert.Contains(t, rec.Body.String(), "Tour final")

	rec = serve(h.ExportText, "GET /api/challenges/{id}/report.txt", httptest.NewRequest(http.MethodGet, "/api/challenges/3/report.txt", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Tour final")

	rec = serve(h.PublishExport, "POST /api/challenges/{id}/exports", httptest.NewRequest(http.MethodPost, "/api/challenges/3/exports", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDelete(t *testing.T) {
	h, remote := newTestHandler(t)
	owner := &model.Identity{TwitterID: "tw-owner"}
	rec := serve(h.Join, "POST /api/challenges/{id}/participations",
		withIdentity(joinRequest(`{"prefecture":"福岡県","gender":"female"}`), owner))
	require.Equal(t, http.StatusCreated, rec.Code)

	const pattern = "DELETE /api/challenges/{id}/participations/{pid}"
	del := func(id *model.Identity, path string) int {
		return serve(h.Delete, pattern, withIdentity(httptest.NewRequest(http.MethodDelete, path, nil), id)).Code
	}

	assert.Equal(t, http.StatusForbidden, del(&model.Identity{TwitterID: "tw-other"}, "/api/challenges/3/participations/1"))
	assert.Equal(t, http.StatusNotFound, del(owner, "/api/challenges/3/participations/42"))
	assert.Equal(t, http.StatusNoContent, del(owner, "/api/challenges/3/participations/1"))
	assert.Empty(t, remote.rows)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	ok := NewHealthHandler(pingFunc(func(context.Context) error { return nil }))
	rec := httptest.NewRecorder()
	ok.Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	down := NewHealthHandler(pingFunc(func(context.Context) error { return errors.New("closed") }))
	rec = httptest.NewRecorder()
	down.Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
