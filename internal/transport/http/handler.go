package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"planora/backend/internal/domain"
	"planora/backend/internal/service/availability"
	"planora/backend/internal/service/planning"
)

type availabilityService interface {
	Resolve(ctx context.Context, establishmentID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.AvailabilityInterval, error)
	ResolveStaff(ctx context.Context, establishmentID, staffID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.AnnotatedInterval, error)
	MaterializeStaffAvailability(ctx context.Context, establishmentID, staffID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.StaffAvailability, error)
	UpsertRule(ctx context.Context, in availability.UpsertRuleInput) (domain.AvailabilityRule, error)
	DeleteRule(ctx context.Context, establishmentID uuid.UUID, dayOfWeek int) error
	CreateOverride(ctx context.Context, in availability.CreateOverrideInput) (domain.AvailabilityOverride, error)
	DeleteOverride(ctx context.Context, establishmentID, overrideID uuid.UUID) error
	SetTimezone(ctx context.Context, establishmentID uuid.UUID, zone string) error
	CreateTimeOff(ctx context.Context, in availability.CreateTimeOffInput) (domain.TimeOffRequest, error)
}

type planningService interface {
	ValidateAssignment(ctx context.Context, membershipID uuid.UUID, candidate domain.AssignmentRange, excludeID uuid.UUID) ([]uuid.UUID, error)
	CreateAssignment(ctx context.Context, in planning.CreateAssignmentInput) (domain.RPMMemberAssignment, error)
	UpdateAssignment(ctx context.Context, in planning.UpdateAssignmentInput) (domain.RPMMemberAssignment, error)
	DeleteAssignment(ctx context.Context, membershipID, assignmentID uuid.UUID) error
}

type Handler struct {
	availability availabilityService
	planning     planningService
	validate     *validator.Validate
	log          *slog.Logger

	Mux *chi.Mux
}

func NewHandler(availabilitySvc availabilityService, planningSvc planningService, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		availability: availabilitySvc,
		planning:     planningSvc,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		log:          log.With(slog.String("component", "http")),

		Mux: chi.NewRouter(),
	}
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)
	h.Mux.Use(withMetrics)

	h.Mux.Get("/healthz", h.Healthz)
	h.Mux.Handle("/metrics", metricsHandler())

	h.Mux.Route("/establishments/{establishmentID}", func(r chi.Router) {
		r.Get("/availability", h.ResolveAvailability)
		r.Put("/timezone", h.SetTimezone)

		r.Route("/availability/rules", func(r chi.Router) {
			r.Put("/", h.UpsertRule)
			r.Delete("/{dayOfWeek}", h.DeleteRule)
		})

		r.Route("/availability/overrides", func(r chi.Router) {
			r.Post("/", h.CreateOverride)
			r.Delete("/{overrideID}", h.DeleteOverride)
		})

		r.Post("/staff/{staffID}/availability/materialize", h.MaterializeStaffAvailability)
	})

	h.Mux.Post("/staff/{staffID}/time-off", h.CreateTimeOff)

	h.Mux.Route("/memberships/{membershipID}/assignments", func(r chi.Router) {
		r.Post("/", h.CreateAssignment)
		r.Post("/validate", h.ValidateAssignment)
		r.Put("/{assignmentID}", h.UpdateAssignment)
		r.Delete("/{assignmentID}", h.DeleteAssignment)
	})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
