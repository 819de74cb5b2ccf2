package domain

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Establishment struct {
	bun.BaseModel `bun:"table:establishments"`

	ID          uuid.UUID `bun:"id,pk,type:uuid"`
	Name        string    `bun:"name,notnull"`
	CountryCode string    `bun:"country_code,notnull"`
	Timezone    string    `bun:"timezone,notnull,default:'UTC'"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}

func (e *Establishment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if e.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			e.ID = id
		}
		if e.Timezone == "" {
			e.Timezone = "UTC"
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		if e.UpdatedAt.IsZero() {
			e.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		e.UpdatedAt = now
	}
	return nil
}

// AvailabilityRule is the default local-time opening window for one
// weekday. At most one rule exists per (establishment, weekday);
// DayOfWeek uses 0 for Sunday.
type AvailabilityRule struct {
	bun.BaseModel `bun:"table:availability_rules"`

	ID              uuid.UUID `bun:"id,pk,type:uuid"`
	EstablishmentID uuid.UUID `bun:"establishment_id,notnull,type:uuid"`
	DayOfWeek       int       `bun:"day_of_week,notnull"`
	StartTime       string    `bun:"start_time,notnull"`
	EndTime         string    `bun:"end_time,notnull"`
	CreatedAt       time.Time `bun:"created_at,notnull"`
	UpdatedAt       time.Time `bun:"updated_at,notnull"`
}

func (r *AvailabilityRule) BeforeAppendModel(ctx context.Context, query bun.Query) error {
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

// AvailabilityOverride is an explicit date-range exception stored as
// absolute UTC instants. Overrides take precedence over weekly rules
// for any overlap.
type AvailabilityOverride struct {
	bun.BaseModel `bun:"table:availability_overrides"`

	ID              uuid.UUID `bun:"id,pk,type:uuid"`
	EstablishmentID uuid.UUID `bun:"establishment_id,notnull,type:uuid"`
	StartDatetime   time.Time `bun:"start_datetime,notnull"`
	EndDatetime     time.Time `bun:"end_datetime,notnull"`
	IsAvailable     bool      `bun:"is_available,notnull"`
	Reason          string    `bun:"reason"`
	CreatedAt       time.Time `bun:"created_at,notnull"`
	UpdatedAt       time.Time `bun:"updated_at,notnull"`
}

func (o *AvailabilityOverride) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if o.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			o.ID = id
		}
		if o.CreatedAt.IsZero() {
			o.CreatedAt = now
		}
		if o.UpdatedAt.IsZero() {
			o.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		o.UpdatedAt = now
	}
	return nil
}

type ruleWindow struct {
	start Clock
	end   Clock
}

// RuleSet is an immutable view of an establishment's weekly recurring
// availability, keyed by weekday.
type RuleSet struct {
	byWeekday map[time.Weekday]ruleWindow
}

// NewRuleSet builds a RuleSet from flat rule rows. It rejects rows that
// violate the stored invariants: weekday outside [0,6], end not after
// start, or two rules for the same weekday.
func NewRuleSet(rules []AvailabilityRule) (RuleSet, error) {
	byWeekday := make(map[time.Weekday]ruleWindow, len(rules))
	for _, r := range rules {
		if r.DayOfWeek < 0 || r.DayOfWeek > 6 {
			return RuleSet{}, fmt.Errorf("invalid day_of_week %d", r.DayOfWeek)
		}
		start, err := ParseClock(r.StartTime)
		if err != nil {
			return RuleSet{}, err
		}
		end, err := ParseClock(r.EndTime)
		if err != nil {
			return RuleSet{}, err
		}
		if end.Minutes() <= start.Minutes() {
			return RuleSet{}, fmt.Errorf("rule for day %d: %w", r.DayOfWeek, ErrInvalidRange)
		}
		wd := time.Weekday(r.DayOfWeek)
		if _, ok := byWeekday[wd]; ok {
			return RuleSet{}, fmt.Errorf("duplicate rule for day_of_week %d", r.DayOfWeek)
		}
		byWeekday[wd] = ruleWindow{start: start, end: end}
	}
	return RuleSet{byWeekday: byWeekday}, nil
}

// Window returns the default local-time window for the given weekday.
// Days without a rule are closed by default.
func (rs RuleSet) Window(wd time.Weekday) (start, end Clock, ok bool) {
	w, ok := rs.byWeekday[wd]
	if !ok {
		return Clock{}, Clock{}, false
	}
	return w.start, w.end, true
}

func (rs RuleSet) Len() int {
	return len(rs.byWeekday)
}

// OverrideSet is an immutable view of an establishment's overrides,
// ordered by start time ascending with creation time as the tie-break,
// so that applying them in order makes the most recently created
// override win on identical ranges.
type OverrideSet struct {
	overrides []AvailabilityOverride
}

func NewOverrideSet(rows []AvailabilityOverride) (OverrideSet, error) {
	overrides := make([]AvailabilityOverride, 0, len(rows))
	for _, o := range rows {
		if !o.EndDatetime.After(o.StartDatetime) {
			return OverrideSet{}, fmt.Errorf("override %s: %w", o.ID, ErrInvalidRange)
		}
		overrides = append(overrides, o)
	}
	sort.SliceStable(overrides, func(i, j int) bool {
		if !overrides[i].StartDatetime.Equal(overrides[j].StartDatetime) {
			return overrides[i].StartDatetime.Before(overrides[j].StartDatetime)
		}
		return overrides[i].CreatedAt.Before(overrides[j].CreatedAt)
	})
	return OverrideSet{overrides: overrides}, nil
}

// Ordered returns the overrides in application order.
func (os OverrideSet) Ordered() []AvailabilityOverride {
	return os.overrides
}

// Overlapping returns the overrides whose range intersects the span, in
// application order.
func (os OverrideSet) Overlapping(span Interval) []AvailabilityOverride {
	out := make([]AvailabilityOverride, 0, len(os.overrides))
	for _, o := range os.overrides {
		if (Interval{Start: o.StartDatetime, End: o.EndDatetime}).Overlaps(span) {
			out = append(out, o)
		}
	}
	return out
}

func (os OverrideSet) Len() int {
	return len(os.overrides)
}
