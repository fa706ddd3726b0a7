package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/templui/doin/internal/aggregate"
	"github.com/templui/doin/internal/auth"
	"github.com/templui/doin/internal/companion"
	"github.com/templui/doin/internal/gateway"
	"github.com/templui/doin/internal/service"
	"github.com/templui/doin/internal/validation"
)

const maxJoinBody = 64 << 10

type ChallengeHandler struct {
	events *service.EventService
	joiner *service.Joiner
}

func NewChallengeHandler(events *service.EventService, joiner *service.Joiner) *ChallengeHandler {
	return &ChallengeHandler{
		events: events,
		joiner: joiner,
	}
}

type statsResponse struct {
	*aggregate.View
	Title     string    `json:"title"`
	Stale     bool      `json:"stale"`
	FetchedAt time.Time `json:"fetchedAt"`
	Pending   int       `json:"pending"`
}

func (h *ChallengeHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid challenge id.")
		return
	}

	stats, err := h.events.Load(r.Context(), id, auth.FromContext(r.Context()))
	if err != nil {
		h.loadFailed(w, id, err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		View:      stats.View,
		Title:     stats.Challenge.Title,
		Stale:     stats.Stale,
		FetchedAt: stats.FetchedAt,
		Pending:   stats.Pending,
	})
}

func (h *ChallengeHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid challenge id.")
		return
	}

	report, _, err := h.events.Report(r.Context(), id)
	if err != nil {
		h.loadFailed(w, id, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename()+`"`)
	if err := report.WriteCSV(w); err != nil {
		slog.Error("failed to write csv export", "error", err, "challenge_id", id)
	}
}

func (h *ChallengeHandler) ExportText(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid challenge id.")
		return
	}

	report, _, err := h.events.Report(r.Context(), id)
	if err != nil {
		h.loadFailed(w, id, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := report.WriteText(w); err != nil {
		slog.Error("failed to write text report", "error", err, "challenge_id", id)
	}
}

func (h *ChallengeHandler) PublishExport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid challenge id.")
		return
	}

	url, err := h.events.PublishReport(r.Context(), id)
	if errors.Is(err, service.ErrStorageDisabled) {
		writeError(w, http.StatusServiceUnavailable, "Report storage is not configured.")
		return
	}
	if err != nil {
		h.loadFailed(w, id, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

type joinResponse struct {
	ID                int64  `json:"id,omitempty"`
	ParticipantNumber *int   `json:"participantNumber,omitempty"`
	PendingID         string `json:"pendingId,omitempty"`
	Queued            bool   `json:"queued"`
}

func (h *ChallengeHandler) Join(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid challenge id.")
		return
	}

	var req service.JoinRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJoinBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	result, err := h.joiner.Join(r.Context(), id, auth.ContextIdentity{}, req)
	if err != nil {
		h.joinFailed(w, id, err)
		return
	}

	resp := joinResponse{
		ID:                result.ID,
		ParticipantNumber: result.ParticipantNumber,
		PendingID:         result.PendingID,
		Queued:            result.Queued(),
	}
	if result.Queued() {
		writeJSON(w, http.StatusAccepted, resp)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *ChallengeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid challenge id.")
		return
	}
	pid, ok := pathID(r, "pid")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid participation id.")
		return
	}

	err := h.events.Delete(r.Context(), id, pid, auth.FromContext(r.Context()))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, gateway.ErrNotOwner):
		writeError(w, http.StatusForbidden, "You can only cancel your own participation.")
	case errors.Is(err, service.ErrParticipationNotFound):
		writeError(w, http.StatusNotFound, "Participation not found.")
	case errors.Is(err, gateway.ErrInFlight):
		writeError(w, http.StatusConflict, "Another request is still running.")
	default:
		slog.Error("failed to delete participation", "error", err, "challenge_id", id, "participation_id", pid)
		writeError(w, http.StatusBadGateway, "Could not cancel the participation. Please try again.")
	}
}

func (h *ChallengeHandler) loadFailed(w http.ResponseWriter, id int64, err error) {
	var cfgErr *aggregate.ConfigurationError
	switch {
	case errors.Is(err, gateway.ErrChallengeNotFound):
		writeError(w, http.StatusNotFound, "Challenge not found.")
	case errors.As(err, &cfgErr):
		writeError(w, http.StatusUnprocessableEntity, cfgErr.Error())
	default:
		slog.Error("failed to load challenge", "error", err, "challenge_id", id)
		writeError(w, http.StatusBadGateway, "Could not load the challenge. Please try again.")
	}
}

func (h *ChallengeHandler) joinFailed(w http.ResponseWriter, id int64, err error) {
	var vErr *validation.ValidationError
	var subErr *gateway.SubmissionError
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "Sign in to continue.")
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: vErr.Message, Code: vErr.Code, Field: vErr.Field})
	case errors.Is(err, companion.ErrProfileNotFound):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Code: "profile-not-found", Field: "companions"})
	case errors.Is(err, gateway.ErrInFlight):
		writeError(w, http.StatusConflict, "A submission is already in progress.")
	case errors.As(err, &subErr):
		writeError(w, submissionStatus(subErr), subErr.Message)
	default:
		slog.Error("failed to join challenge", "error", err, "challenge_id", id)
		writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
	}
}

func submissionStatus(err *gateway.SubmissionError) int {
	switch {
	case err.Unreachable(), err.Status >= 500:
		return http.StatusBadGateway
	case err.Status >= 400:
		return err.Status
	}
	return http.StatusBadGateway
}
