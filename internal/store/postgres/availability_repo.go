package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"planora/backend/internal/domain"
	"planora/backend/internal/store"
)

type AvailabilityRepo struct {
	db *bun.DB
}

func NewAvailabilityRepo(db *bun.DB) *AvailabilityRepo {
	return &AvailabilityRepo{db: db}
}

func (r *AvailabilityRepo) EstablishmentTimezone(ctx context.Context, establishmentID uuid.UUID) (string, error) {
	var est domain.Establishment
	err := r.db.NewSelect().
		Model(&est).
		Column("timezone").
		Where("id = ?", establishmentID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", store.ErrNotFound
		}
		return "", err
	}
	if est.Timezone == "" {
		return "UTC", nil
	}
	return est.Timezone, nil
}

func (r *AvailabilityRepo) SetEstablishmentTimezone(ctx context.Context, establishmentID uuid.UUID, zone string) error {
	res, err := r.db.NewUpdate().
		Model((*domain.Establishment)(nil)).
		Set("timezone = ?", zone).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", establishmentID).
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

func (r *AvailabilityRepo) LoadRules(ctx context.Context, establishmentID uuid.UUID) ([]domain.AvailabilityRule, error) {
	var rows []domain.AvailabilityRule
	err := r.db.NewSelect().
		Model(&rows).
		Where("establishment_id = ?", establishmentID).
		OrderExpr("day_of_week ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AvailabilityRepo) UpsertRule(ctx context.Context, rule domain.AvailabilityRule) (domain.AvailabilityRule, error) {
	m := domain.AvailabilityRule{
		ID:              rule.ID,
		EstablishmentID: rule.EstablishmentID,
		DayOfWeek:       rule.DayOfWeek,
		StartTime:       rule.StartTime,
		EndTime:         rule.EndTime,
		CreatedAt:       rule.CreatedAt,
		UpdatedAt:       rule.UpdatedAt,
	}

	_, err := r.db.NewInsert().
		Model(&m).
		On("CONFLICT (establishment_id, day_of_week) DO UPDATE").
		Set("start_time = EXCLUDED.start_time").
		Set("end_time = EXCLUDED.end_time").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.AvailabilityRule{}, err
	}
	return m, nil
}

func (r *AvailabilityRepo) DeleteRule(ctx context.Context, establishmentID uuid.UUID, dayOfWeek int) error {
	res, err := r.db.NewDelete().
		Model((*domain.AvailabilityRule)(nil)).
		Where("establishment_id = ?", establishmentID).
		Where("day_of_week = ?", dayOfWeek).
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

func (r *AvailabilityRepo) LoadOverrides(ctx context.Context, establishmentID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.AvailabilityOverride, error) {
	var rows []domain.AvailabilityOverride
	err := r.db.NewSelect().
		Model(&rows).
		Where("establishment_id = ?", establishmentID).
		Where("start_datetime < ?", windowEnd).
		Where("end_datetime > ?", windowStart).
		OrderExpr("start_datetime ASC, created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AvailabilityRepo) CreateOverride(ctx context.Context, override domain.AvailabilityOverride) (domain.AvailabilityOverride, error) {
	m := domain.AvailabilityOverride{
		ID:              override.ID,
		EstablishmentID: override.EstablishmentID,
		StartDatetime:   override.StartDatetime,
		EndDatetime:     override.EndDatetime,
		IsAvailable:     override.IsAvailable,
		Reason:          override.Reason,
		CreatedAt:       override.CreatedAt,
		UpdatedAt:       override.UpdatedAt,
	}

	_, err := r.db.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		return domain.AvailabilityOverride{}, err
	}
	return m, nil
}

func (r *AvailabilityRepo) DeleteOverride(ctx context.Context, establishmentID, overrideID uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.AvailabilityOverride)(nil)).
		Where("establishment_id = ?", establishmentID).
		Where("id = ?", overrideID).
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

func (r *AvailabilityRepo) LoadPendingTimeOff(ctx context.Context, staffID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.TimeOffRequest, error) {
	var rows []domain.TimeOffRequest
	err := r.db.NewSelect().
		Model(&rows).
		Where("staff_id = ?", staffID).
		Where("status = ?", domain.TimeOffStatusPending).
		Where("start_time < ?", windowEnd).
		Where("end_time > ?", windowStart).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AvailabilityRepo) CreateTimeOff(ctx context.Context, req domain.TimeOffRequest) (domain.TimeOffRequest, error) {
	m := domain.TimeOffRequest{
		ID:        req.ID,
		StaffID:   req.StaffID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    req.Status,
		Reason:    req.Reason,
		CreatedAt: req.CreatedAt,
		UpdatedAt: req.UpdatedAt,
	}

	_, err := r.db.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		return domain.TimeOffRequest{}, err
	}
	return m, nil
}

// ReplaceStaffAvailability swaps the materialized availability rows of a
// staff member for the given window in one transaction, so readers never
// observe a half-replaced window.
func (r *AvailabilityRepo) ReplaceStaffAvailability(ctx context.Context, staffID uuid.UUID, windowStart, windowEnd time.Time, rows []domain.StaffAvailability) ([]domain.StaffAvailability, error) {
	inserted := make([]domain.StaffAvailability, 0, len(rows))
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*domain.StaffAvailability)(nil)).
			Where("staff_id = ?", staffID).
			Where("start_time < ?", windowEnd).
			Where("end_time > ?", windowStart).
			Exec(ctx)
		if err != nil {
			return err
		}

		for _, row := range rows {
			m := row
			if _, err := tx.NewInsert().Model(&m).Exec(ctx); err != nil {
				return err
			}
			inserted = append(inserted, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}
