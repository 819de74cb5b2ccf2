package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"planora/backend/internal/domain"
	"planora/backend/internal/service/planning"
)

type validateAssignmentRequest struct {
	AssignmentStartDate time.Time  `json:"assignment_start_date" validate:"required"`
	AssignmentEndDate   *time.Time `json:"assignment_end_date"`
	ExcludeAssignmentID *uuid.UUID `json:"exclude_assignment_id"`
}

// ValidateAssignment reports which of the membership's assignments the
// candidate range would overlap. It never writes; the create and update
// endpoints repeat the check transactionally.
func (h *Handler) ValidateAssignment(w http.ResponseWriter, r *http.Request) {
	membershipID, err := pathUUID(r, "membershipID")
	if err != nil {
		h.badRequest(w, r, err.Error())
		return
	}
	var req validateAssignmentRequest
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err.Error())
		return
	}

	excludeID := uuid.Nil
	if req.ExcludeAssignmentID != nil {
		excludeID = *req.ExcludeAssignmentID
	}

	conflicts, err := h.planning.ValidateAssignment(r.Context(), membershipID, domain.AssignmentRange{
		Start: req.AssignmentStartDate,
		End:   req.AssignmentEndDate,
	}, excludeID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	if conflicts == nil {
		conflicts = []uuid.UUID{}
	}
	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"valid":                   len(conflicts) == 0,
		"conflicting_assignments": conflicts,
	})
}

type assignmentRequest struct {
	RecurringPlanningModelID uuid.UUID  `json:"recurring_planning_model_id" validate:"required"`
	AssignmentStartDate      time.Time  `json:"assignment_start_date" validate:"required"`
	AssignmentEndDate        *time.Time `json:"assignment_end_date"`
}

func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	membershipID, err := pathUUID(r, "membershipID")
	if err != nil {
		h.badRequest(w, r, err.Error())
		return
	}
	var req assignmentRequest
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err.Error())
		return
	}

	assignment, err := h.planning.CreateAssignment(r.Context(), planning.CreateAssignmentInput{
		MembershipID:             membershipID,
		RecurringPlanningModelID: req.RecurringPlanningModelID,
		StartDate:                req.AssignmentStartDate,
		EndDate:                  req.AssignmentEndDate,
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, assignment)
}

func (h *Handler) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	membershipID, err := pathUUID(r, "membershipID")
	if err != nil {
		h.badRequest(w, r, err.Error())
		return
	}
	assignmentID, err := pathUUID(r, "assignmentID")
	if err != nil {
		h.badRequest(w, r, err.Error())
		return
	}
	var req assignmentRequest
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err.Error())
		return
	}

	assignment, err := h.planning.UpdateAssignment(r.Context(), planning.UpdateAssignmentInput{
		ID:                       assignmentID,
		MembershipID:             membershipID,
		RecurringPlanningModelID: req.RecurringPlanningModelID,
		StartDate:                req.AssignmentStartDate,
		EndDate:                  req.AssignmentEndDate,
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, assignment)
}

func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	membershipID, err := pathUUID(r, "membershipID")
	if err != nil {
		h.badRequest(w, r, err.Error())
		return
	}
	assignmentID, err := pathUUID(r, "assignmentID")
	if err != nil {
		h.badRequest(w, r, err.Error())
		return
	}

	if err := h.planning.DeleteAssignment(r.Context(), membershipID, assignmentID); err != nil {
		h.serviceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
