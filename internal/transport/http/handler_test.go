package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"planora/backend/internal/domain"
	"planora/backend/internal/service/availability"
	"planora/backend/internal/service/planning"
	"planora/backend/internal/store"
)

type fakeAvailabilityService struct {
	resolveFn        func(ctx context.Context, establishmentID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.AvailabilityInterval, error)
	resolveStaffFn   func(ctx context.Context, establishmentID, staffID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.AnnotatedInterval, error)
	materializeFn    func(ctx context.Context, establishmentID, staffID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.StaffAvailability, error)
	upsertRuleFn     func(ctx context.Context, in availability.UpsertRuleInput) (domain.AvailabilityRule, error)
	deleteRuleFn     func(ctx context.Context, establishmentID uuid.UUID, dayOfWeek int) error
	createOverrideFn func(ctx context.Context, in availability.CreateOverrideInput) (domain.AvailabilityOverride, error)
	deleteOverrideFn func(ctx context.Context, establishmentID, overrideID uuid.UUID) error
	setTimezoneFn    func(ctx context.Context, establishmentID uuid.UUID, zone string) error
	createTimeOffFn  func(ctx context.Context, in availability.CreateTimeOffInput) (domain.TimeOffRequest, error)
}

func (f *fakeAvailabilityService) Resolve(ctx context.Context, establishmentID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.AvailabilityInterval, error) {
	if f.resolveFn == nil {
		panic("Resolve not configured")
	}
	return f.resolveFn(ctx, establishmentID, windowStart, windowEnd)
}

func (f *fakeAvailabilityService) ResolveStaff(ctx context.Context, establishmentID, staffID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.AnnotatedInterval, error) {
	if f.resolveStaffFn == nil {
		panic("ResolveStaff not configured")
	}
	return f.resolveStaffFn(ctx, establishmentID, staffID, windowStart, windowEnd)
}

func (f *fakeAvailabilityService) MaterializeStaffAvailability(ctx context.Context, establishmentID, staffID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.StaffAvailability, error) {
	if f.materializeFn == nil {
		panic("MaterializeStaffAvailability not configured")
	}
	return f.materializeFn(ctx, establishmentID, staffID, windowStart, windowEnd)
}

func (f *fakeAvailabilityService) UpsertRule(ctx context.Context, in availability.UpsertRuleInput) (domain.AvailabilityRule, error) {
	if f.upsertRuleFn == nil {
		panic("UpsertRule not configured")
	}
	return f.upsertRuleFn(ctx, in)
}

func (f *fakeAvailabilityService) DeleteRule(ctx context.Context, establishmentID uuid.UUID, dayOfWeek int) error {
	if f.deleteRuleFn == nil {
		panic("DeleteRule not configured")
	}
	return f.deleteRuleFn(ctx, establishmentID, dayOfWeek)
}

func (f *fakeAvailabilityService) CreateOverride(ctx context.Context, in availability.CreateOverrideInput) (domain.AvailabilityOverride, error) {
	if f.createOverrideFn == nil {
		panic("CreateOverride not configured")
	}
	return f.createOverrideFn(ctx, in)
}

func (f *fakeAvailabilityService) DeleteOverride(ctx context.Context, establishmentID, overrideID uuid.UUID) error {
	if f.deleteOverrideFn == nil {
		panic("DeleteOverride not configured")
	}
	return f.deleteOverrideFn(ctx, establishmentID, overrideID)
}

func (f *fakeAvailabilityService) SetTimezone(ctx context.Context, establishmentID uuid.UUID, zone string) error {
	if f.setTimezoneFn == nil {
		panic("SetTimezone not configured")
	}
	return f.setTimezoneFn(ctx, establishmentID, zone)
}

func (f *fakeAvailabilityService) CreateTimeOff(ctx context.Context, in availability.CreateTimeOffInput) (domain.TimeOffRequest, error) {
	if f.createTimeOffFn == nil {
		panic("CreateTimeOff not configured")
	}
	return f.createTimeOffFn(ctx, in)
}

type fakePlanningService struct {
	validateFn func(ctx context.Context, membershipID uuid.UUID, candidate domain.AssignmentRange, excludeID uuid.UUID) ([]uuid.UUID, error)
	createFn   func(ctx context.Context, in planning.CreateAssignmentInput) (domain.RPMMemberAssignment, error)
	updateFn   func(ctx context.Context, in planning.UpdateAssignmentInput) (domain.RPMMemberAssignment, error)
	deleteFn   func(ctx context.Context, membershipID, assignmentID uuid.UUID) error
}

func (f *fakePlanningService) ValidateAssignment(ctx context.Context, membershipID uuid.UUID, candidate domain.AssignmentRange, excludeID uuid.UUID) ([]uuid.UUID, error) {
	if f.validateFn == nil {
		panic("ValidateAssignment not configured")
	}
	return f.validateFn(ctx, membershipID, candidate, excludeID)
}

func (f *fakePlanningService) CreateAssignment(ctx context.Context, in planning.CreateAssignmentInput) (domain.RPMMemberAssignment, error) {
	if f.createFn == nil {
		panic("CreateAssignment not configured")
	}
	return f.createFn(ctx, in)
}

func (f *fakePlanningService) UpdateAssignment(ctx context.Context, in planning.UpdateAssignmentInput) (domain.RPMMemberAssignment, error) {
	if f.updateFn == nil {
		panic("UpdateAssignment not configured")
	}
	return f.updateFn(ctx, in)
}

func (f *fakePlanningService) DeleteAssignment(ctx context.Context, membershipID, assignmentID uuid.UUID) error {
	if f.deleteFn == nil {
		panic("DeleteAssignment not configured")
	}
	return f.deleteFn(ctx, membershipID, assignmentID)
}

func newTestHandler(av availabilityService, pl planningService) *Handler {
	h := NewHandler(av, pl, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.RegisterRoutes()
	return h
}

func do(t *testing.T, h *Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)
	return rec
}

var (
	establishmentID = uuid.MustParse("00000000-0000-0000-0000-000000000201")
	staffID         = uuid.MustParse("00000000-0000-0000-0000-000000000202")
	membershipID    = uuid.MustParse("00000000-0000-0000-0000-000000000203")
)

func windowQuery(start, end time.Time) string {
	return fmt.Sprintf("window_start=%s&window_end=%s",
		start.Format(time.RFC3339), end.Format(time.RFC3339))
}

func TestResolveAvailability(t *testing.T) {
	windowStart := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)

	t.Run("returns the resolved intervals", func(t *testing.T) {
		av := &fakeAvailabilityService{
			resolveFn: func(ctx context.Context, id uuid.UUID, ws, we time.Time) ([]domain.AvailabilityInterval, error) {
				if id != establishmentID {
					t.Fatalf("establishment_id = %s", id)
				}
				if !ws.Equal(windowStart) || !we.Equal(windowEnd) {
					t.Fatalf("window = [%v, %v)", ws, we)
				}
				return []domain.AvailabilityInterval{
					{Start: ws, End: we, Available: false},
				}, nil
			},
		}
		h := newTestHandler(av, &fakePlanningService{})

		rec := do(t, h, http.MethodGet,
			"/establishments/"+establishmentID.String()+"/availability?"+windowQuery(windowStart, windowEnd), "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
		}

		var resp struct {
			Intervals []domain.AvailabilityInterval `json:"intervals"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(resp.Intervals) != 1 {
			t.Fatalf("intervals = %d, want 1", len(resp.Intervals))
		}
	})

	t.Run("staff_id switches to the annotated resolution", func(t *testing.T) {
		called := false
		av := &fakeAvailabilityService{
			resolveStaffFn: func(ctx context.Context, id, sid uuid.UUID, ws, we time.Time) ([]domain.AnnotatedInterval, error) {
				called = true
				if sid != staffID {
					t.Fatalf("staff_id = %s", sid)
				}
				return []domain.AnnotatedInterval{}, nil
			},
		}
		h := newTestHandler(av, &fakePlanningService{})

		rec := do(t, h, http.MethodGet,
			"/establishments/"+establishmentID.String()+"/availability?staff_id="+staffID.String()+"&"+windowQuery(windowStart, windowEnd), "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
		}
		if !called {
			t.Fatalf("ResolveStaff was not called")
		}
	})

	t.Run("missing window is a 400", func(t *testing.T) {
		h := newTestHandler(&fakeAvailabilityService{}, &fakePlanningService{})
		rec := do(t, h, http.MethodGet, "/establishments/"+establishmentID.String()+"/availability", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("bad establishment id is a 400", func(t *testing.T) {
		h := newTestHandler(&fakeAvailabilityService{}, &fakePlanningService{})
		rec := do(t, h, http.MethodGet, "/establishments/not-a-uuid/availability?"+windowQuery(windowStart, windowEnd), "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("validation errors from the service are 400s", func(t *testing.T) {
		av := &fakeAvailabilityService{
			resolveFn: func(ctx context.Context, id uuid.UUID, ws, we time.Time) ([]domain.AvailabilityInterval, error) {
				return nil, availability.NewValidationError("window_end must not be before window_start")
			},
		}
		h := newTestHandler(av, &fakePlanningService{})
		rec := do(t, h, http.MethodGet,
			"/establishments/"+establishmentID.String()+"/availability?"+windowQuery(windowEnd, windowStart), "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestUpsertRule(t *testing.T) {
	t.Run("forwards the parsed body", func(t *testing.T) {
		var got availability.UpsertRuleInput
		av := &fakeAvailabilityService{
			upsertRuleFn: func(ctx context.Context, in availability.UpsertRuleInput) (domain.AvailabilityRule, error) {
				got = in
				return domain.AvailabilityRule{
					EstablishmentID: in.EstablishmentID,
					DayOfWeek:       in.DayOfWeek,
					StartTime:       in.StartTime,
					EndTime:         in.EndTime,
				}, nil
			},
		}
		h := newTestHandler(av, &fakePlanningService{})

		rec := do(t, h, http.MethodPut,
			"/establishments/"+establishmentID.String()+"/availability/rules/",
			`{"day_of_week": 0, "start_time": "09:00", "end_time": "17:00"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
		}
		if got.EstablishmentID != establishmentID || got.DayOfWeek != 0 || got.StartTime != "09:00" {
			t.Fatalf("input = %+v", got)
		}
	})

	t.Run("missing clock fields are a 400", func(t *testing.T) {
		h := newTestHandler(&fakeAvailabilityService{}, &fakePlanningService{})
		rec := do(t, h, http.MethodPut,
			"/establishments/"+establishmentID.String()+"/availability/rules/",
			`{"day_of_week": 1}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestDeleteRule(t *testing.T) {
	t.Run("no content on success", func(t *testing.T) {
		av := &fakeAvailabilityService{
			deleteRuleFn: func(ctx context.Context, id uuid.UUID, dayOfWeek int) error {
				if dayOfWeek != 3 {
					t.Fatalf("day_of_week = %d, want 3", dayOfWeek)
				}
				return nil
			},
		}
		h := newTestHandler(av, &fakePlanningService{})
		rec := do(t, h, http.MethodDelete,
			"/establishments/"+establishmentID.String()+"/availability/rules/3", "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rec.Code)
		}
	})

	t.Run("missing rule is a 404", func(t *testing.T) {
		av := &fakeAvailabilityService{
			deleteRuleFn: func(ctx context.Context, id uuid.UUID, dayOfWeek int) error {
				return store.ErrNotFound
			},
		}
		h := newTestHandler(av, &fakePlanningService{})
		rec := do(t, h, http.MethodDelete,
			"/establishments/"+establishmentID.String()+"/availability/rules/3", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})
}

func TestCreateOverride(t *testing.T) {
	av := &fakeAvailabilityService{
		createOverrideFn: func(ctx context.Context, in availability.CreateOverrideInput) (domain.AvailabilityOverride, error) {
			return domain.AvailabilityOverride{
				EstablishmentID: in.EstablishmentID,
				StartDatetime:   in.StartDatetime,
				EndDatetime:     in.EndDatetime,
				IsAvailable:     in.IsAvailable,
			}, nil
		},
	}
	h := newTestHandler(av, &fakePlanningService{})

	rec := do(t, h, http.MethodPost,
		"/establishments/"+establishmentID.String()+"/availability/overrides/",
		`{"start_datetime": "2026-06-01T10:00:00Z", "end_datetime": "2026-06-01T12:00:00Z", "is_available": false, "reason": "maintenance"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
}

func TestSetTimezone(t *testing.T) {
	t.Run("unknown zone is a 400", func(t *testing.T) {
		av := &fakeAvailabilityService{
			setTimezoneFn: func(ctx context.Context, id uuid.UUID, zone string) error {
				return fmt.Errorf("%q: %w", zone, domain.ErrInvalidTimezone)
			},
		}
		h := newTestHandler(av, &fakePlanningService{})
		rec := do(t, h, http.MethodPut,
			"/establishments/"+establishmentID.String()+"/timezone",
			`{"timezone": "Narnia/Lantern"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("valid zone is a 204", func(t *testing.T) {
		av := &fakeAvailabilityService{
			setTimezoneFn: func(ctx context.Context, id uuid.UUID, zone string) error {
				if zone != "Europe/Paris" {
					t.Fatalf("zone = %q", zone)
				}
				return nil
			},
		}
		h := newTestHandler(av, &fakePlanningService{})
		rec := do(t, h, http.MethodPut,
			"/establishments/"+establishmentID.String()+"/timezone",
			`{"timezone": "Europe/Paris"}`)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rec.Code)
		}
	})
}

func TestCreateTimeOff(t *testing.T) {
	av := &fakeAvailabilityService{
		createTimeOffFn: func(ctx context.Context, in availability.CreateTimeOffInput) (domain.TimeOffRequest, error) {
			if in.StaffID != staffID {
				t.Fatalf("staff_id = %s", in.StaffID)
			}
			return domain.TimeOffRequest{
				StaffID:   in.StaffID,
				StartTime: in.StartTime,
				EndTime:   in.EndTime,
				Status:    domain.TimeOffStatusPending,
			}, nil
		},
	}
	h := newTestHandler(av, &fakePlanningService{})

	rec := do(t, h, http.MethodPost,
		"/staff/"+staffID.String()+"/time-off",
		`{"start_time": "2026-06-01T10:00:00Z", "end_time": "2026-06-01T12:00:00Z", "reason": "vacation"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
}

func TestValidateAssignment(t *testing.T) {
	conflictID := uuid.MustParse("00000000-0000-0000-0000-000000000204")

	t.Run("reports conflicts", func(t *testing.T) {
		pl := &fakePlanningService{
			validateFn: func(ctx context.Context, id uuid.UUID, candidate domain.AssignmentRange, excludeID uuid.UUID) ([]uuid.UUID, error) {
				if id != membershipID {
					t.Fatalf("membership_id = %s", id)
				}
				return []uuid.UUID{conflictID}, nil
			},
		}
		h := newTestHandler(&fakeAvailabilityService{}, pl)

		rec := do(t, h, http.MethodPost,
			"/memberships/"+membershipID.String()+"/assignments/validate",
			`{"assignment_start_date": "2024-05-01T00:00:00Z"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
		}

		var resp struct {
			Valid                  bool        `json:"valid"`
			ConflictingAssignments []uuid.UUID `json:"conflicting_assignments"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Valid {
			t.Fatalf("valid = true, want false")
		}
		if len(resp.ConflictingAssignments) != 1 || resp.ConflictingAssignments[0] != conflictID {
			t.Fatalf("conflicts = %v", resp.ConflictingAssignments)
		}
	})

	t.Run("clean candidate is valid with an empty list", func(t *testing.T) {
		pl := &fakePlanningService{
			validateFn: func(ctx context.Context, id uuid.UUID, candidate domain.AssignmentRange, excludeID uuid.UUID) ([]uuid.UUID, error) {
				return nil, nil
			},
		}
		h := newTestHandler(&fakeAvailabilityService{}, pl)

		rec := do(t, h, http.MethodPost,
			"/memberships/"+membershipID.String()+"/assignments/validate",
			`{"assignment_start_date": "2024-07-01T00:00:00Z"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
		}

		var resp struct {
			Valid                  bool        `json:"valid"`
			ConflictingAssignments []uuid.UUID `json:"conflicting_assignments"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !resp.Valid {
			t.Fatalf("valid = false, want true")
		}
		if resp.ConflictingAssignments == nil {
			t.Fatalf("conflicting_assignments missing from response")
		}
	})

	t.Run("exclude id is forwarded", func(t *testing.T) {
		var gotExclude uuid.UUID
		pl := &fakePlanningService{
			validateFn: func(ctx context.Context, id uuid.UUID, candidate domain.AssignmentRange, excludeID uuid.UUID) ([]uuid.UUID, error) {
				gotExclude = excludeID
				return nil, nil
			},
		}
		h := newTestHandler(&fakeAvailabilityService{}, pl)

		do(t, h, http.MethodPost,
			"/memberships/"+membershipID.String()+"/assignments/validate",
			`{"assignment_start_date": "2024-07-01T00:00:00Z", "exclude_assignment_id": "`+conflictID.String()+`"}`)
		if gotExclude != conflictID {
			t.Fatalf("exclude_id = %s, want %s", gotExclude, conflictID)
		}
	})
}

func TestCreateAssignment(t *testing.T) {
	rpmID := uuid.MustParse("00000000-0000-0000-0000-000000000205")

	t.Run("created on success", func(t *testing.T) {
		pl := &fakePlanningService{
			createFn: func(ctx context.Context, in planning.CreateAssignmentInput) (domain.RPMMemberAssignment, error) {
				if in.MembershipID != membershipID || in.RecurringPlanningModelID != rpmID {
					t.Fatalf("input = %+v", in)
				}
				return domain.RPMMemberAssignment{MembershipID: in.MembershipID}, nil
			},
		}
		h := newTestHandler(&fakeAvailabilityService{}, pl)

		rec := do(t, h, http.MethodPost,
			"/memberships/"+membershipID.String()+"/assignments/",
			`{"recurring_planning_model_id": "`+rpmID.String()+`", "assignment_start_date": "2024-01-01T00:00:00Z"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
		}
	})

	t.Run("overlap surfaces as a 409", func(t *testing.T) {
		pl := &fakePlanningService{
			createFn: func(ctx context.Context, in planning.CreateAssignmentInput) (domain.RPMMemberAssignment, error) {
				return domain.RPMMemberAssignment{}, store.ErrConflict
			},
		}
		h := newTestHandler(&fakeAvailabilityService{}, pl)

		rec := do(t, h, http.MethodPost,
			"/memberships/"+membershipID.String()+"/assignments/",
			`{"recurring_planning_model_id": "`+rpmID.String()+`", "assignment_start_date": "2024-01-01T00:00:00Z"}`)
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("missing rpm id is a 400", func(t *testing.T) {
		h := newTestHandler(&fakeAvailabilityService{}, &fakePlanningService{})
		rec := do(t, h, http.MethodPost,
			"/memberships/"+membershipID.String()+"/assignments/",
			`{"assignment_start_date": "2024-01-01T00:00:00Z"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestDeleteAssignment(t *testing.T) {
	assignmentID := uuid.MustParse("00000000-0000-0000-0000-000000000206")

	pl := &fakePlanningService{
		deleteFn: func(ctx context.Context, mid, aid uuid.UUID) error {
			if mid != membershipID || aid != assignmentID {
				t.Fatalf("ids = %s/%s", mid, aid)
			}
			return nil
		},
	}
	h := newTestHandler(&fakeAvailabilityService{}, pl)

	rec := do(t, h, http.MethodDelete,
		"/memberships/"+membershipID.String()+"/assignments/"+assignmentID.String(), "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(&fakeAvailabilityService{}, &fakePlanningService{})
	rec := do(t, h, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
