package domain

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type TimeOffStatus string

const (
	TimeOffStatusPending  TimeOffStatus = "pending"
	TimeOffStatusApproved TimeOffStatus = "approved"
	TimeOffStatusRejected TimeOffStatus = "rejected"
)

type TimeOffRequest struct {
	bun.BaseModel `bun:"table:time_off_requests"`

	ID        uuid.UUID     `bun:"id,pk,type:uuid"`
	StaffID   uuid.UUID     `bun:"staff_id,notnull,type:uuid"`
	StartTime time.Time     `bun:"start_time,notnull"`
	EndTime   time.Time     `bun:"end_time,notnull"`
	Status    TimeOffStatus `bun:"status,notnull,default:'pending'"`
	Reason    string        `bun:"reason"`
	CreatedAt time.Time     `bun:"created_at,notnull"`
	UpdatedAt time.Time     `bun:"updated_at,notnull"`
}

func (r *TimeOffRequest) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if r.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			r.ID = id
		}
		if r.Status == "" {
			r.Status = TimeOffStatusPending
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		r.UpdatedAt = now
	}
	return nil
}

// AvailabilityConflict records a non-blocking collision between a
// resolved available interval and a pending time-off request.
type AvailabilityConflict struct {
	RequestID    uuid.UUID     `json:"request_id"`
	OverlapStart time.Time     `json:"overlap_start"`
	OverlapEnd   time.Time     `json:"overlap_end"`
	Status       TimeOffStatus `json:"request_status"`
}

// AnnotatedInterval is an availability interval plus the pending
// time-off conflicts that overlap it. Conflicts are advisory: they never
// remove, split or invalidate the interval.
type AnnotatedInterval struct {
	AvailabilityInterval
	Conflicts []AvailabilityConflict `json:"conflicts,omitempty"`
}

// StaffAvailability is a materialized staff availability interval with
// optional conflict metadata, persisted for the admin surface.
type StaffAvailability struct {
	bun.BaseModel `bun:"table:staff_availabilities"`

	ID                       uuid.UUID              `bun:"id,pk,type:uuid"`
	StaffID                  uuid.UUID              `bun:"staff_id,notnull,type:uuid"`
	EstablishmentID          uuid.UUID              `bun:"establishment_id,notnull,type:uuid"`
	StartTime                time.Time              `bun:"start_time,notnull"`
	EndTime                  time.Time              `bun:"end_time,notnull"`
	PotentialConflictDetails []AvailabilityConflict `bun:"potential_conflict_details,type:jsonb"`
	CreatedAt                time.Time              `bun:"created_at,notnull"`
	UpdatedAt                time.Time              `bun:"updated_at,notnull"`
}

func (s *StaffAvailability) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if s.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			s.ID = id
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		s.UpdatedAt = now
	}
	return nil
}

// AnnotateConflicts cross-references resolved availability against a
// staff member's time-off requests. Only requests still pending produce
// descriptors; approved and rejected ones are ignored. Descriptors on
// one interval are ordered by request start time ascending.
func AnnotateConflicts(intervals []AvailabilityInterval, requests []TimeOffRequest) []AnnotatedInterval {
	pending := make([]TimeOffRequest, 0, len(requests))
	for _, r := range requests {
		if r.Status == TimeOffStatusPending {
			pending = append(pending, r)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].StartTime.Before(pending[j].StartTime)
	})

	out := make([]AnnotatedInterval, 0, len(intervals))
	for _, iv := range intervals {
		annotated := AnnotatedInterval{AvailabilityInterval: iv}
		if iv.Available {
			span := Interval{Start: iv.Start, End: iv.End}
			for _, r := range pending {
				overlap := span.Intersect(Interval{Start: r.StartTime.UTC(), End: r.EndTime.UTC()})
				if overlap.Empty() {
					continue
				}
				annotated.Conflicts = append(annotated.Conflicts, AvailabilityConflict{
					RequestID:    r.ID,
					OverlapStart: overlap.Start,
					OverlapEnd:   overlap.End,
					Status:       r.Status,
				})
			}
		}
		out = append(out, annotated)
	}
	return out
}
