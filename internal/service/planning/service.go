package planning

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"planora/backend/internal/domain"
	"planora/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

type Service struct {
	repo store.AssignmentRepository
}

func NewService(repo store.AssignmentRepository) *Service {
	return &Service{repo: repo}
}

// ValidateAssignment checks a candidate assignment range against the
// membership's existing assignments without writing anything. The
// returned IDs are the conflicting assignments; an empty list means the
// candidate is safe. excludeID skips the assignment being edited.
//
// This is an advisory pre-check: the write paths re-run the same check
// inside their transaction, so a stale answer here can never corrupt
// the invariant.
func (s *Service) ValidateAssignment(ctx context.Context, membershipID uuid.UUID, candidate domain.AssignmentRange, excludeID uuid.UUID) ([]uuid.UUID, error) {
	if membershipID == uuid.Nil {
		return nil, validationError("membership_id is required")
	}

	existing, err := s.repo.LoadAssignments(ctx, membershipID)
	if err != nil {
		return nil, err
	}

	conflicts, err := domain.ValidateAssignmentOverlap(normalizeRange(candidate), existing, excludeID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRange) {
			return nil, validationError("assignment_end_date must be after assignment_start_date")
		}
		return nil, err
	}
	return conflicts, nil
}

type CreateAssignmentInput struct {
	MembershipID             uuid.UUID
	RecurringPlanningModelID uuid.UUID
	StartDate                time.Time
	EndDate                  *time.Time
}

func (s *Service) CreateAssignment(ctx context.Context, in CreateAssignmentInput) (domain.RPMMemberAssignment, error) {
	if err := validateAssignmentInput(in.MembershipID, in.RecurringPlanningModelID, in.StartDate, in.EndDate); err != nil {
		return domain.RPMMemberAssignment{}, err
	}

	return s.repo.CreateAssignment(ctx, domain.RPMMemberAssignment{
		MembershipID:             in.MembershipID,
		RecurringPlanningModelID: in.RecurringPlanningModelID,
		StartDate:                truncateDate(in.StartDate),
		EndDate:                  truncateDatePtr(in.EndDate),
	})
}

type UpdateAssignmentInput struct {
	ID                       uuid.UUID
	MembershipID             uuid.UUID
	RecurringPlanningModelID uuid.UUID
	StartDate                time.Time
	EndDate                  *time.Time
}

func (s *Service) UpdateAssignment(ctx context.Context, in UpdateAssignmentInput) (domain.RPMMemberAssignment, error) {
	if in.ID == uuid.Nil {
		return domain.RPMMemberAssignment{}, validationError("assignment_id is required")
	}
	if err := validateAssignmentInput(in.MembershipID, in.RecurringPlanningModelID, in.StartDate, in.EndDate); err != nil {
		return domain.RPMMemberAssignment{}, err
	}

	return s.repo.UpdateAssignment(ctx, domain.RPMMemberAssignment{
		ID:                       in.ID,
		MembershipID:             in.MembershipID,
		RecurringPlanningModelID: in.RecurringPlanningModelID,
		StartDate:                truncateDate(in.StartDate),
		EndDate:                  truncateDatePtr(in.EndDate),
	})
}

func (s *Service) DeleteAssignment(ctx context.Context, membershipID, assignmentID uuid.UUID) error {
	if membershipID == uuid.Nil {
		return validationError("membership_id is required")
	}
	if assignmentID == uuid.Nil {
		return validationError("assignment_id is required")
	}
	return s.repo.DeleteAssignment(ctx, membershipID, assignmentID)
}

func validateAssignmentInput(membershipID, rpmID uuid.UUID, start time.Time, end *time.Time) error {
	if membershipID == uuid.Nil {
		return validationError("membership_id is required")
	}
	if rpmID == uuid.Nil {
		return validationError("recurring_planning_model_id is required")
	}
	if start.IsZero() {
		return validationError("assignment_start_date is required")
	}
	if end != nil && !truncateDate(*end).After(truncateDate(start)) {
		return validationError("assignment_end_date must be after assignment_start_date")
	}
	return nil
}

func normalizeRange(r domain.AssignmentRange) domain.AssignmentRange {
	return domain.AssignmentRange{
		Start: truncateDate(r.Start),
		End:   truncateDatePtr(r.End),
	}
}

func truncateDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateDatePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := truncateDate(*t)
	return &d
}
