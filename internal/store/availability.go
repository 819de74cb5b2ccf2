package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"planora/backend/internal/domain"
)

// AvailabilityRepository loads and mutates the data the availability
// resolver works on. Reads used by one resolution call run within a
// single consistent snapshot.
type AvailabilityRepository interface {
	EstablishmentTimezone(ctx context.Context, establishmentID uuid.UUID) (string, error)
	SetEstablishmentTimezone(ctx context.Context, establishmentID uuid.UUID, zone string) error

	LoadRules(ctx context.Context, establishmentID uuid.UUID) ([]domain.AvailabilityRule, error)
	UpsertRule(ctx context.Context, rule domain.AvailabilityRule) (domain.AvailabilityRule, error)
	DeleteRule(ctx context.Context, establishmentID uuid.UUID, dayOfWeek int) error

	LoadOverrides(ctx context.Context, establishmentID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.AvailabilityOverride, error)
	CreateOverride(ctx context.Context, override domain.AvailabilityOverride) (domain.AvailabilityOverride, error)
	DeleteOverride(ctx context.Context, establishmentID, overrideID uuid.UUID) error

	LoadPendingTimeOff(ctx context.Context, staffID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.TimeOffRequest, error)
	CreateTimeOff(ctx context.Context, req domain.TimeOffRequest) (domain.TimeOffRequest, error)

	ReplaceStaffAvailability(ctx context.Context, staffID uuid.UUID, windowStart, windowEnd time.Time, rows []domain.StaffAvailability) ([]domain.StaffAvailability, error)
}

// AssignmentRepository persists recurring-planning-model assignments.
// Create and Update run the overlap check inside the same transaction as
// the write, so two concurrent writes cannot both pass against a stale
// snapshot.
type AssignmentRepository interface {
	LoadAssignments(ctx context.Context, membershipID uuid.UUID) ([]domain.RPMMemberAssignment, error)
	CreateAssignment(ctx context.Context, a domain.RPMMemberAssignment) (domain.RPMMemberAssignment, error)
	UpdateAssignment(ctx context.Context, a domain.RPMMemberAssignment) (domain.RPMMemberAssignment, error)
	DeleteAssignment(ctx context.Context, membershipID, assignmentID uuid.UUID) error
}
