package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
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

// NewValidationError reports a client-correctable problem with a request.
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{msg: msg}
}

// ResponseCache stores resolved availability keyed by establishment
// generation, so a rule or override write invalidates every cached
// window of that establishment at once.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Generation(ctx context.Context, scope string) int64
	BumpGeneration(ctx context.Context, scope string)
}

type Options struct {
	Cache     ResponseCache
	CacheTTL  time.Duration
	MaxWindow time.Duration
}

type Service struct {
	repo      store.AvailabilityRepository
	cache     ResponseCache
	cacheTTL  time.Duration
	maxWindow time.Duration
}

func NewService(repo store.AvailabilityRepository, opts Options) *Service {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	maxWindow := opts.MaxWindow
	if maxWindow <= 0 {
		maxWindow = 92 * 24 * time.Hour
	}
	return &Service{
		repo:      repo,
		cache:     opts.Cache,
		cacheTTL:  ttl,
		maxWindow: maxWindow,
	}
}

// Resolve computes the establishment's availability over the UTC window
// [windowStart, windowEnd). The window length is capped because
// resolution cost grows with the number of enumerated days.
func (s *Service) Resolve(ctx context.Context, establishmentID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.AvailabilityInterval, error) {
	if establishmentID == uuid.Nil {
		return nil, validationError("establishment_id is required")
	}

	start := windowStart.UTC()
	end := windowEnd.UTC()
	if end.Before(start) {
		return nil, validationError("window_end must not be before window_start")
	}
	if end.Equal(start) {
		return []domain.AvailabilityInterval{}, nil
	}
	if end.Sub(start) > s.maxWindow {
		return nil, validationError(fmt.Sprintf("query window exceeds %s", s.maxWindow))
	}

	cacheKey := ""
	if s.cache != nil {
		gen := s.cache.Generation(ctx, establishmentScope(establishmentID))
		cacheKey = fmt.Sprintf("planora:availability:%s:%d:%d:%d", establishmentID, gen, start.Unix(), end.Unix())
		if b, ok := s.cache.Get(ctx, cacheKey); ok {
			var cached []domain.AvailabilityInterval
			if err := json.Unmarshal(b, &cached); err == nil {
				return cached, nil
			}
		}
	}

	zone, err := s.repo.EstablishmentTimezone(ctx, establishmentID)
	if err != nil {
		return nil, err
	}

	ruleRows, err := s.repo.LoadRules(ctx, establishmentID)
	if err != nil {
		return nil, err
	}
	rules, err := domain.NewRuleSet(ruleRows)
	if err != nil {
		return nil, err
	}

	overrideRows, err := s.repo.LoadOverrides(ctx, establishmentID, start, end)
	if err != nil {
		return nil, err
	}
	overrides, err := domain.NewOverrideSet(overrideRows)
	if err != nil {
		return nil, err
	}

	out, err := domain.ResolveAvailability(rules, overrides, zone, start, end)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if b, err := json.Marshal(out); err == nil {
			s.cache.Set(ctx, cacheKey, b, s.cacheTTL)
		}
	}
	return out, nil
}

// ResolveStaff resolves the establishment's availability and annotates
// it with the staff member's pending time-off conflicts. Annotations are
// advisory and never reduce availability.
func (s *Service) ResolveStaff(ctx context.Context, establishmentID, staffID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.AnnotatedInterval, error) {
	if staffID == uuid.Nil {
		return nil, validationError("staff_id is required")
	}

	intervals, err := s.Resolve(ctx, establishmentID, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	if len(intervals) == 0 {
		return []domain.AnnotatedInterval{}, nil
	}

	requests, err := s.repo.LoadPendingTimeOff(ctx, staffID, windowStart.UTC(), windowEnd.UTC())
	if err != nil {
		return nil, err
	}
	return domain.AnnotateConflicts(intervals, requests), nil
}

// MaterializeStaffAvailability resolves and annotates a staff window,
// then persists the available intervals with their conflict metadata for
// the admin surface.
func (s *Service) MaterializeStaffAvailability(ctx context.Context, establishmentID, staffID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.StaffAvailability, error) {
	annotated, err := s.ResolveStaff(ctx, establishmentID, staffID, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.StaffAvailability, 0, len(annotated))
	for _, iv := range annotated {
		if !iv.Available {
			continue
		}
		rows = append(rows, domain.StaffAvailability{
			StaffID:                  staffID,
			EstablishmentID:          establishmentID,
			StartTime:                iv.Start,
			EndTime:                  iv.End,
			PotentialConflictDetails: iv.Conflicts,
		})
	}
	return s.repo.ReplaceStaffAvailability(ctx, staffID, windowStart.UTC(), windowEnd.UTC(), rows)
}

type UpsertRuleInput struct {
	EstablishmentID uuid.UUID
	DayOfWeek       int
	StartTime       string
	EndTime         string
}

func (s *Service) UpsertRule(ctx context.Context, in UpsertRuleInput) (domain.AvailabilityRule, error) {
	if in.EstablishmentID == uuid.Nil {
		return domain.AvailabilityRule{}, validationError("establishment_id is required")
	}
	if in.DayOfWeek < 0 || in.DayOfWeek > 6 {
		return domain.AvailabilityRule{}, validationError("day_of_week must be between 0 (Sunday) and 6")
	}

	start, err := domain.ParseClock(strings.TrimSpace(in.StartTime))
	if err != nil {
		return domain.AvailabilityRule{}, validationError(err.Error())
	}
	end, err := domain.ParseClock(strings.TrimSpace(in.EndTime))
	if err != nil {
		return domain.AvailabilityRule{}, validationError(err.Error())
	}
	if end.Minutes() <= start.Minutes() {
		return domain.AvailabilityRule{}, validationError("end_time must be after start_time")
	}

	rule, err := s.repo.UpsertRule(ctx, domain.AvailabilityRule{
		EstablishmentID: in.EstablishmentID,
		DayOfWeek:       in.DayOfWeek,
		StartTime:       start.String(),
		EndTime:         end.String(),
	})
	if err != nil {
		return domain.AvailabilityRule{}, err
	}
	s.invalidate(ctx, in.EstablishmentID)
	return rule, nil
}

func (s *Service) DeleteRule(ctx context.Context, establishmentID uuid.UUID, dayOfWeek int) error {
	if establishmentID == uuid.Nil {
		return validationError("establishment_id is required")
	}
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return validationError("day_of_week must be between 0 (Sunday) and 6")
	}
	if err := s.repo.DeleteRule(ctx, establishmentID, dayOfWeek); err != nil {
		return err
	}
	s.invalidate(ctx, establishmentID)
	return nil
}

type CreateOverrideInput struct {
	EstablishmentID uuid.UUID
	StartDatetime   time.Time
	EndDatetime     time.Time
	IsAvailable     bool
	Reason          string
}

func (s *Service) CreateOverride(ctx context.Context, in CreateOverrideInput) (domain.AvailabilityOverride, error) {
	if in.EstablishmentID == uuid.Nil {
		return domain.AvailabilityOverride{}, validationError("establishment_id is required")
	}
	start := in.StartDatetime.UTC()
	end := in.EndDatetime.UTC()
	if !end.After(start) {
		return domain.AvailabilityOverride{}, validationError("end_datetime must be after start_datetime")
	}

	override, err := s.repo.CreateOverride(ctx, domain.AvailabilityOverride{
		EstablishmentID: in.EstablishmentID,
		StartDatetime:   start,
		EndDatetime:     end,
		IsAvailable:     in.IsAvailable,
		Reason:          strings.TrimSpace(in.Reason),
	})
	if err != nil {
		return domain.AvailabilityOverride{}, err
	}
	s.invalidate(ctx, in.EstablishmentID)
	return override, nil
}

func (s *Service) DeleteOverride(ctx context.Context, establishmentID, overrideID uuid.UUID) error {
	if establishmentID == uuid.Nil {
		return validationError("establishment_id is required")
	}
	if overrideID == uuid.Nil {
		return validationError("override_id is required")
	}
	if err := s.repo.DeleteOverride(ctx, establishmentID, overrideID); err != nil {
		return err
	}
	s.invalidate(ctx, establishmentID)
	return nil
}

// SetTimezone changes the establishment's zone. The change is
// prospective: stored override instants are absolute UTC and are not
// reinterpreted.
func (s *Service) SetTimezone(ctx context.Context, establishmentID uuid.UUID, zone string) error {
	if establishmentID == uuid.Nil {
		return validationError("establishment_id is required")
	}
	zone = strings.TrimSpace(zone)
	if zone == "" {
		zone = "UTC"
	}
	if _, err := domain.LoadZone(zone); err != nil {
		return err
	}
	if err := s.repo.SetEstablishmentTimezone(ctx, establishmentID, zone); err != nil {
		return err
	}
	s.invalidate(ctx, establishmentID)
	return nil
}

type CreateTimeOffInput struct {
	StaffID   uuid.UUID
	StartTime time.Time
	EndTime   time.Time
	Reason    string
}

func (s *Service) CreateTimeOff(ctx context.Context, in CreateTimeOffInput) (domain.TimeOffRequest, error) {
	if in.StaffID == uuid.Nil {
		return domain.TimeOffRequest{}, validationError("staff_id is required")
	}
	start := in.StartTime.UTC()
	end := in.EndTime.UTC()
	if !end.After(start) {
		return domain.TimeOffRequest{}, validationError("end_time must be after start_time")
	}

	return s.repo.CreateTimeOff(ctx, domain.TimeOffRequest{
		StaffID:   in.StaffID,
		StartTime: start,
		EndTime:   end,
		Status:    domain.TimeOffStatusPending,
		Reason:    strings.TrimSpace(in.Reason),
	})
}

func (s *Service) invalidate(ctx context.Context, establishmentID uuid.UUID) {
	if s.cache == nil {
		return
	}
	s.cache.BumpGeneration(ctx, establishmentScope(establishmentID))
}

func establishmentScope(establishmentID uuid.UUID) string {
	return "availability:" + establishmentID.String()
}
