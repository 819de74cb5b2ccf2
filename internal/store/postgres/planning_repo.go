package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"planora/backend/internal/domain"
	"planora/backend/internal/store"
)

type AssignmentRepo struct {
	db *bun.DB
}

func NewAssignmentRepo(db *bun.DB) *AssignmentRepo {
	return &AssignmentRepo{db: db}
}

type planningTx struct {
	tx bun.Tx
}

func (r *AssignmentRepo) LoadAssignments(ctx context.Context, membershipID uuid.UUID) ([]domain.RPMMemberAssignment, error) {
	var rows []domain.RPMMemberAssignment
	err := r.db.NewSelect().
		Model(&rows).
		Where("membership_id = ?", membershipID).
		OrderExpr("assignment_start_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AssignmentRepo) CreateAssignment(ctx context.Context, a domain.RPMMemberAssignment) (domain.RPMMemberAssignment, error) {
	var out domain.RPMMemberAssignment
	err := r.InMembershipTransaction(ctx, a.MembershipID, func(ctx context.Context, tx store.PlanningTx) error {
		if err := ensureNoAssignmentOverlap(ctx, tx, a, uuid.Nil); err != nil {
			return err
		}
		created, err := tx.InsertAssignment(ctx, a)
		if err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		return domain.RPMMemberAssignment{}, err
	}
	return out, nil
}

func (r *AssignmentRepo) UpdateAssignment(ctx context.Context, a domain.RPMMemberAssignment) (domain.RPMMemberAssignment, error) {
	var out domain.RPMMemberAssignment
	err := r.InMembershipTransaction(ctx, a.MembershipID, func(ctx context.Context, tx store.PlanningTx) error {
		if err := ensureNoAssignmentOverlap(ctx, tx, a, a.ID); err != nil {
			return err
		}
		updated, err := tx.UpdateAssignment(ctx, a)
		if err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return domain.RPMMemberAssignment{}, err
	}
	return out, nil
}

func (r *AssignmentRepo) DeleteAssignment(ctx context.Context, membershipID, assignmentID uuid.UUID) error {
	return r.InMembershipTransaction(ctx, membershipID, func(ctx context.Context, tx store.PlanningTx) error {
		return tx.DeleteAssignment(ctx, membershipID, assignmentID)
	})
}

// InMembershipTransaction runs fn inside a transaction holding an
// exclusive advisory lock on the membership, serializing concurrent
// assignment writes so the overlap check never races a stale snapshot.
func (r *AssignmentRepo) InMembershipTransaction(ctx context.Context, membershipID uuid.UUID, fn func(ctx context.Context, tx store.PlanningTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockMembership(ctx, tx, membershipID); err != nil {
			return err
		}
		return fn(ctx, planningTx{tx: tx})
	})
}

func lockMembership(ctx context.Context, tx bun.Tx, membershipID uuid.UUID) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", membershipID.String()).Exec(ctx)
	return err
}

func ensureNoAssignmentOverlap(ctx context.Context, tx store.PlanningTx, a domain.RPMMemberAssignment, excludeID uuid.UUID) error {
	existing, err := tx.ListAssignments(ctx, a.MembershipID)
	if err != nil {
		return err
	}

	candidate := domain.AssignmentRange{Start: a.StartDate, End: a.EndDate}
	conflicts, err := domain.ValidateAssignmentOverlap(candidate, existing, excludeID)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return store.ErrConflict
	}
	return nil
}

func (r planningTx) ListAssignments(ctx context.Context, membershipID uuid.UUID) ([]domain.RPMMemberAssignment, error) {
	var rows []domain.RPMMemberAssignment
	err := r.tx.NewSelect().
		Model(&rows).
		Where("membership_id = ?", membershipID).
		OrderExpr("assignment_start_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r planningTx) InsertAssignment(ctx context.Context, a domain.RPMMemberAssignment) (domain.RPMMemberAssignment, error) {
	m := domain.RPMMemberAssignment{
		ID:                       a.ID,
		MembershipID:             a.MembershipID,
		RecurringPlanningModelID: a.RecurringPlanningModelID,
		StartDate:                a.StartDate,
		EndDate:                  a.EndDate,
		CreatedAt:                a.CreatedAt,
		UpdatedAt:                a.UpdatedAt,
	}

	_, err := r.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23P01: range-exclusion constraint backing the overlap rule.
		if errors.As(err, &pgErr) && pgErr.Code == "23P01" {
			return domain.RPMMemberAssignment{}, store.ErrConflict
		}
		return domain.RPMMemberAssignment{}, err
	}
	return m, nil
}

func (r planningTx) UpdateAssignment(ctx context.Context, a domain.RPMMemberAssignment) (domain.RPMMemberAssignment, error) {
	m := domain.RPMMemberAssignment{
		ID:                       a.ID,
		MembershipID:             a.MembershipID,
		RecurringPlanningModelID: a.RecurringPlanningModelID,
		StartDate:                a.StartDate,
		EndDate:                  a.EndDate,
		CreatedAt:                a.CreatedAt,
		UpdatedAt:                a.UpdatedAt,
	}

	res, err := r.tx.NewUpdate().
		Model(&m).
		Column("recurring_planning_model_id", "assignment_start_date", "assignment_end_date", "updated_at").
		Where("id = ?", a.ID).
		Where("membership_id = ?", a.MembershipID).
		Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23P01" {
			return domain.RPMMemberAssignment{}, store.ErrConflict
		}
		return domain.RPMMemberAssignment{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.RPMMemberAssignment{}, err
	}
	if affected == 0 {
		return domain.RPMMemberAssignment{}, store.ErrNotFound
	}
	return m, nil
}

func (r planningTx) DeleteAssignment(ctx context.Context, membershipID, assignmentID uuid.UUID) error {
	res, err := r.tx.NewDelete().
		Model((*domain.RPMMemberAssignment)(nil)).
		Where("membership_id = ?", membershipID).
		Where("id = ?", assignmentID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
