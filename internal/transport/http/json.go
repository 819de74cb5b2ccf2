package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"planora/backend/internal/domain"
	"planora/backend/internal/service/availability"
	"planora/backend/internal/service/planning"
	"planora/backend/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) readJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return h.validate.Struct(v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("response encode failed", slogMethodPath(r, err)...)
	}
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	h.writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: msg})
}

// serviceError maps service and store errors onto HTTP statuses. Unknown
// errors become opaque 500s so internals never leak to clients.
func (h *Handler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	var availabilityErr *availability.ValidationError
	var planningErr *planning.ValidationError
	var fieldErrs validator.ValidationErrors

	switch {
	case errors.As(err, &availabilityErr):
		h.badRequest(w, r, availabilityErr.Error())
	case errors.As(err, &planningErr):
		h.badRequest(w, r, planningErr.Error())
	case errors.As(err, &fieldErrs):
		h.badRequest(w, r, fieldErrs.Error())
	case errors.Is(err, domain.ErrInvalidTimezone), errors.Is(err, domain.ErrInvalidRange):
		h.badRequest(w, r, err.Error())
	case errors.Is(err, store.ErrNotFound):
		h.writeJSON(w, r, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, store.ErrConflict):
		h.writeJSON(w, r, http.StatusConflict, errorResponse{Error: "conflicts with an existing assignment"})
	default:
		h.log.Error("request failed", slogMethodPath(r, err)...)
		h.writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func slogMethodPath(r *http.Request, err error) []any {
	return []any{"method", r.Method, "path", r.URL.Path, "err", err}
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s must be a UUID", name)
	}
	return id, nil
}

// queryWindow parses the window_start/window_end RFC 3339 query pair.
func queryWindow(r *http.Request) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("window_start"))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("window_start must be an RFC 3339 timestamp")
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("window_end"))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("window_end must be an RFC 3339 timestamp")
	}
	return start, end, nil
}
