package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RPMMemberAssignment binds a membership to a recurring planning model
// over a date range. A nil end date means the assignment is open-ended.
type RPMMemberAssignment struct {
	bun.BaseModel `bun:"table:rpm_member_assignments"`

	ID                       uuid.UUID  `bun:"id,pk,type:uuid"`
	MembershipID             uuid.UUID  `bun:"membership_id,notnull,type:uuid"`
	RecurringPlanningModelID uuid.UUID  `bun:"recurring_planning_model_id,notnull,type:uuid"`
	StartDate                time.Time  `bun:"assignment_start_date,notnull,type:date"`
	EndDate                  *time.Time `bun:"assignment_end_date,type:date"`
	CreatedAt                time.Time  `bun:"created_at,notnull"`
	UpdatedAt                time.Time  `bun:"updated_at,notnull"`
}

func (a *RPMMemberAssignment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}

// AssignmentRange is a candidate assignment period, half-open on dates,
// with a nil end standing for +infinity.
type AssignmentRange struct {
	Start time.Time
	End   *time.Time
}

// ValidateAssignmentOverlap reports which of a membership's existing
// assignments conflict with the candidate range. Two ranges conflict
// when candidate.start < existing.end and existing.start < candidate.end,
// with open ends treated as unbounded. excludeID skips the assignment
// being edited; pass uuid.Nil when creating.
//
// Conflicts are returned in the order the existing assignments were
// given; an empty slice means the candidate is safe.
func ValidateAssignmentOverlap(candidate AssignmentRange, existing []RPMMemberAssignment, excludeID uuid.UUID) ([]uuid.UUID, error) {
	if candidate.End != nil && !candidate.End.After(candidate.Start) {
		return nil, fmt.Errorf("assignment_end_date %s: %w", candidate.End.Format("2006-01-02"), ErrInvalidRange)
	}

	conflicts := make([]uuid.UUID, 0)
	for _, a := range existing {
		if excludeID != uuid.Nil && a.ID == excludeID {
			continue
		}
		if dateRangesOverlap(candidate.Start, candidate.End, a.StartDate, a.EndDate) {
			conflicts = append(conflicts, a.ID)
		}
	}
	return conflicts, nil
}

func dateRangesOverlap(aStart time.Time, aEnd *time.Time, bStart time.Time, bEnd *time.Time) bool {
	if aEnd != nil && !aEnd.After(bStart) {
		return false
	}
	if bEnd != nil && !bEnd.After(aStart) {
		return false
	}
	return true
}
