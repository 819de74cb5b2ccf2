package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidTimezone = errors.New("invalid timezone")
	ErrInvalidRange    = errors.New("end must be after start")
)

// Clock is a civil time of day without date or zone.
type Clock struct {
	Hour   int
	Minute int
}

func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return Clock{}, fmt.Errorf("invalid clock %q: expected HH:MM", s)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c Clock) Valid() bool {
	return c.Hour >= 0 && c.Hour <= 23 && c.Minute >= 0 && c.Minute <= 59
}

// Minutes returns the offset from local midnight, used to order two
// clocks on the same civil day.
func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

// LoadZone resolves an IANA timezone identifier. An empty identifier
// means UTC, matching the establishment default.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, name)
	}
	return loc, nil
}

// ToUTC combines a civil date and time of day in the given zone into a
// UTC instant. Local times that do not exist because of a DST
// spring-forward gap normalize to the shifted-forward instant after the
// gap; ambiguous fall-back times take the earlier offset.
func ToUTC(year int, month time.Month, day int, c Clock, zone string) (time.Time, error) {
	loc, err := LoadZone(zone)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(year, month, day, c.Hour, c.Minute, 0, 0, loc).UTC(), nil
}

// FormatInZone renders a UTC instant as local civil text.
func FormatInZone(t time.Time, zone, layout string) (string, error) {
	loc, err := LoadZone(zone)
	if err != nil {
		return "", err
	}
	return t.In(loc).Format(layout), nil
}

// StartOfLocalDay returns the UTC instant of 00:00:00.000 local time of
// the calendar day containing t in the given zone.
func StartOfLocalDay(t time.Time, zone string) (time.Time, error) {
	loc, err := LoadZone(zone)
	if err != nil {
		return time.Time{}, err
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).UTC(), nil
}

// EndOfLocalDay returns the UTC instant of 23:59:59.999 local time of
// the calendar day containing t in the given zone.
func EndOfLocalDay(t time.Time, zone string) (time.Time, error) {
	loc, err := LoadZone(zone)
	if err != nil {
		return time.Time{}, err
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, int(999*time.Millisecond), loc).UTC(), nil
}
