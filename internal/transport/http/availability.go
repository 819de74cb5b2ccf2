package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"planora/backend/internal/service/availability"
)

// ResolveAvailability resolves an establishment's UTC availability over
// the requested window. When staff_id is present, the intervals carry
// pending time-off conflict annotations for that staff member.
func (h *Handler) ResolveAvailability(w http.ResponseWriter, r *http.Request) {
	establishmentID, err := pathUUID(r, "establishmentID")
	if err != nil {
		h.badRequest(w, r, err.Error())
		return
	}
	windowStart, windowEnd, err := queryWindow(r)
	if err != nil {
		h.badRequest(w, r, err.Error())
		return
	}

	if raw := r.URL.Query().Get("staff_id"); raw != "" {
		staffID, err := uuid.Parse(raw)
		if err != nil {
			h.badRequest(w, r, "staff_id must be a UUID")
			return
		}
		out, err := h.availability.ResolveStaff(r.Context(), establishmentID, staffID, windowStart, windowEnd)
		if err != nil {
			h.serviceError(w, r, err)
			return
		}
		h.writeJSON(w, r, http.StatusOK, map[string]any{"intervals": out})
		return
	}

	out, err := h.availability.Resolve(r.Context(), establishmentID, windowStart, windowEnd)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]any{"intervals": out})
}

type upsertRuleRequest struct {
	DayOfWeek *int   `json:"day_of_week" validate:"required,min=0,max=6"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

func (h *Handler) UpsertRule(w http.ResponseWriter, r *http.Request) {
	establishmentID, err := pathUUID(r, "establishmentID")
	if err != nil {
		h.badRequest(w, r, err.Error())
		return
	}
	var req upsertRuleRequest
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err.Error())
		return
	}

	rule, err := h.availability.UpsertRule(r.Context(), availability.UpsertRuleInput{
		EstablishmentID: establishmentID,
		DayOfWeek:       *req.DayOfWeek,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, rule)
}

func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	establishmentID, err := pathUUID(r, "establishmentID")
	if err != nil {
		h.badRequest(w, r, err.Error())
		return
	}
	dayOfWeek, err := strconv.Atoi(chi.URLParam(r, "dayOfWeek"))
	if err != nil {
		h.badRequest(w, r, "dayOfWeek must be an integer")
		return
	}

	if err := h.availability.DeleteRule(r.Context(), establishmentID, dayOfWeek); err != nil {
		h.serviceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createOverrideRequest struct {
	StartDatetime time.Time `json:"start_datetime" validate:"required"`
	EndDatetime   time.Time `json:"end_datetime" validate:"required"`
	IsAvailable   bool      `json:"is_available"`
	Reason        string    `json:"reason"`
}

func (h *Handler) CreateOverride(w http.ResponseWriter, r *http.Request) {
	establishmentID, err := pathUUID(r, "establishmentID")
	if err != nil {
		h.badRequest(w, r, err.Error())
		return
	}
	var req createOverrideRequest
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err.Error())
		return
	}

	override, err := h.availability.CreateOverride(r.Context(), availability.CreateOverrideInput{
		EstablishmentID: establishmentID,
		StartDatetime:   req.StartDatetime,
		EndDatetime:     req.EndDatetime,
		IsAvailable:     req.IsAvailable,
		Reason:          req.Reason,
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, override)
}

func (h *Handler) DeleteOverride(w http.ResponseWriter, r *http.Request) {
	establishmentID, err := pathUUID(r, "establishmentID")
	if err != nil {
		h.badRequest(w, r, err.Error())
		return
	}
	overrideID, err := pathUUID(r, "overrideID")
	if err != nil {
		h.badRequest(w, r, err.Error())
		return
	}

	if err := h.availability.DeleteOverride(r.Context(), establishmentID, overrideID); err != nil {
		h.serviceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setTimezoneRequest struct {
	Timezone string `json:"timezone"`
}

func (h *Handler) SetTimezone(w http.ResponseWriter, r *http.Request) {
	establishmentID, err := pathUUID(r, "establishmentID")
	if err != nil {
		h.badRequest(w, r, err.Error())
		return
	}
	var req setTimezoneRequest
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err.Error())
		return
	}

	if err := h.availability.SetTimezone(r.Context(), establishmentID, req.Timezone); err != nil {
		h.serviceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) MaterializeStaffAvailability(w http.ResponseWriter, r *http.Request) {
	establishmentID, err := pathUUID(r, "establishmentID")
	if err != nil {
		h.badRequest(w, r, err.Error())
		return
	}
	staffID, err := pathUUID(r, "staffID")
	if err != nil {
		h.badRequest(w, r, err.Error())
		return
	}
	windowStart, windowEnd, err := queryWindow(r)
	if err != nil {
		h.badRequest(w, r, err.Error())
		return
	}

	rows, err := h.availability.MaterializeStaffAvailability(r.Context(), establishmentID, staffID, windowStart, windowEnd)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]any{"staff_availability": rows})
}

type createTimeOffRequest struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
	Reason    string    `json:"reason"`
}

func (h *Handler) CreateTimeOff(w http.ResponseWriter, r *http.Request) {
	staffID, err := pathUUID(r, "staffID")
	if err != nil {
		h.badRequest(w, r, err.Error())
		return
	}
	var req createTimeOffRequest
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err.Error())
		return
	}

	timeOff, err := h.availability.CreateTimeOff(r.Context(), availability.CreateTimeOffInput{
		StaffID:   staffID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Reason:    req.Reason,
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, timeOff)
}
