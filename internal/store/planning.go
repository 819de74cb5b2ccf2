package store

import (
	"context"

	"github.com/google/uuid"

	"planora/backend/internal/domain"
)

// PlanningTx is the transaction-scoped view used for assignment writes.
// The membership's assignment rows are exclusively locked for the
// duration of the transaction.
type PlanningTx interface {
	ListAssignments(ctx context.Context, membershipID uuid.UUID) ([]domain.RPMMemberAssignment, error)
	InsertAssignment(ctx context.Context, a domain.RPMMemberAssignment) (domain.RPMMemberAssignment, error)
	UpdateAssignment(ctx context.Context, a domain.RPMMemberAssignment) (domain.RPMMemberAssignment, error)
	DeleteAssignment(ctx context.Context, membershipID, assignmentID uuid.UUID) error
}
