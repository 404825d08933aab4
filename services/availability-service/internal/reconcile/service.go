// Package reconcile runs the save and load flows for an employee's availability:
// map the edited view model to records, fetch the persisted snapshot, diff, and
// hand the resulting merge request to the store in one call.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/availability/services/availability-service/internal/daterange"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/diag"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/schedule"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/syncdiff"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrSaveFailed is returned for every save that could not be committed. The
// store applies a merge atomically, so nothing from the failed save persists.
var ErrSaveFailed = errors.New("save failed, no partial changes applied")

// Store is the persistence collaborator. Merge must apply all upserts and
// deletes of one request together or not at all.
type Store interface {
	ListWorkdaySets(ctx context.Context, employeeID int64) ([]schedule.WorkdaySet, error)
	MergeWorkdaySets(ctx context.Context, employeeID int64, req syncdiff.MergeRequest[schedule.WorkdaySet]) error
	ListSpecialDays(ctx context.Context, employeeID int64) ([]schedule.SpecialDayRow, error)
	MergeSpecialDays(ctx context.Context, employeeID int64, req syncdiff.MergeRequest[schedule.SpecialDayRow]) error
	ListDaysOff(ctx context.Context, employeeID int64) ([]schedule.DayOffRecord, error)
	MergeDaysOff(ctx context.Context, employeeID int64, req syncdiff.MergeRequest[schedule.DayOffRecord]) error
}

type Config struct {
	Labels schedule.Labels
}

type Service struct {
	store   Store
	logger  *slog.Logger
	labels  schedule.Labels
	metrics *Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

func New(store Store, logger *slog.Logger, m *Metrics, cfg Config) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   store,
		logger:  logger,
		labels:  cfg.Labels,
		metrics: m,
		tracer:  otel.Tracer("availability-service/reconcile"),
		now:     time.Now,
	}
}

// SaveResult summarizes one save. Skipped means the edited state already
// matched the store and no merge was issued.
type SaveResult struct {
	Upserted int              `json:"upserted"`
	Deleted  int              `json:"deleted"`
	Skipped  bool             `json:"skipped"`
	Rejected []diag.Rejection `json:"rejected"`
}

func (s *Service) LoadWeekly(ctx context.Context, employeeID int64) (schedule.WeeklyAvailability, []diag.Rejection, error) {
	records, err := s.store.ListWorkdaySets(ctx, employeeID)
	if err != nil {
		return schedule.WeeklyAvailability{}, nil, fmt.Errorf("list workday sets: %w", err)
	}
	rep := &diag.Report{}
	vm := schedule.WeeklyFromRecords(records, schedule.MapOptions{Labels: s.labels, Diagnostics: rep})
	s.observeRejected(ctx, "weekly", employeeID, rep)
	return vm, rep.Items(), nil
}

func (s *Service) SaveWeekly(ctx context.Context, employeeID int64, vm schedule.WeeklyAvailability) (SaveResult, error) {
	rep := &diag.Report{}
	next := schedule.WeeklyToRecords(vm, schedule.MapOptions{Labels: s.labels, Diagnostics: rep})
	return save(ctx, s, "weekly", employeeID, next, rep, syncdiff.WorkdaySets, s.store.ListWorkdaySets, s.store.MergeWorkdaySets)
}

func (s *Service) LoadSpecialDays(ctx context.Context, employeeID int64) ([]schedule.Override, []diag.Rejection, error) {
	rows, err := s.store.ListSpecialDays(ctx, employeeID)
	if err != nil {
		return nil, nil, fmt.Errorf("list special days: %w", err)
	}
	rep := &diag.Report{}
	out := schedule.OverridesFromRows(rows, schedule.MapOptions{Diagnostics: rep})
	s.observeRejected(ctx, "special_days", employeeID, rep)
	return out, rep.Items(), nil
}

func (s *Service) SaveSpecialDays(ctx context.Context, employeeID int64, overrides []schedule.Override) (SaveResult, error) {
	rep := &diag.Report{}
	next := schedule.OverridesToRows(overrides, schedule.MapOptions{Diagnostics: rep})
	return save(ctx, s, "special_days", employeeID, next, rep, syncdiff.SpecialDayRows, s.store.ListSpecialDays, s.store.MergeSpecialDays)
}

func (s *Service) LoadDaysOff(ctx context.Context, employeeID int64) ([]schedule.DayOff, []diag.Rejection, error) {
	records, err := s.store.ListDaysOff(ctx, employeeID)
	if err != nil {
		return nil, nil, fmt.Errorf("list days off: %w", err)
	}
	rep := &diag.Report{}
	out := schedule.DaysOffFromRecords(records, schedule.MapOptions{Diagnostics: rep})
	s.observeRejected(ctx, "days_off", employeeID, rep)
	return out, rep.Items(), nil
}

func (s *Service) SaveDaysOff(ctx context.Context, employeeID int64, list []schedule.DayOff) (SaveResult, error) {
	rep := &diag.Report{}
	next := schedule.DaysOffToRecords(list, schedule.MapOptions{Diagnostics: rep})
	return save(ctx, s, "days_off", employeeID, next, rep, syncdiff.DaysOff, s.store.ListDaysOff, s.store.MergeDaysOff)
}

// UpcomingDaysOff lists the next occurrence of each day off. A zero from means
// today in the server's local time zone.
func (s *Service) UpcomingDaysOff(ctx context.Context, employeeID int64, from daterange.Date) ([]schedule.Upcoming, error) {
	list, _, err := s.LoadDaysOff(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if from.IsZero() {
		from = daterange.FromTime(s.now())
	}
	return schedule.UpcomingDaysOff(list, from), nil
}

// DayOffCalendar expands every day off, yearly ones included, into the
// occurrences that overlap window.
func (s *Service) DayOffCalendar(ctx context.Context, employeeID int64, window daterange.Range) ([]schedule.Upcoming, error) {
	list, _, err := s.LoadDaysOff(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	return schedule.Calendar(list, window), nil
}

// SpecialDaysOn returns the overrides, repeating ones included, that apply on
// day. A zero day means today in the server's local time zone.
func (s *Service) SpecialDaysOn(ctx context.Context, employeeID int64, day daterange.Date) ([]schedule.OverrideOccurrence, error) {
	list, _, err := s.LoadSpecialDays(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if day.IsZero() {
		day = daterange.FromTime(s.now())
	}
	return schedule.OverridesOn(list, day), nil
}

// SpecialDayCalendar expands every override into the occurrences that overlap
// window.
func (s *Service) SpecialDayCalendar(ctx context.Context, employeeID int64, window daterange.Range) ([]schedule.OverrideOccurrence, error) {
	list, _, err := s.LoadSpecialDays(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	return schedule.OverrideCalendar(list, window), nil
}

func save[R, C any](
	ctx context.Context,
	s *Service,
	entity string,
	employeeID int64,
	next []R,
	rep *diag.Report,
	codec syncdiff.Codec[R, C],
	list func(context.Context, int64) ([]R, error),
	merge func(context.Context, int64, syncdiff.MergeRequest[R]) error,
) (SaveResult, error) {
	ctx, span := s.tracer.Start(ctx, "reconcile.save", trace.WithAttributes(
		attribute.String("availability.entity", entity),
		attribute.Int64("availability.employee_id", employeeID),
	))
	defer span.End()
	start := s.now()

	s.observeRejected(ctx, entity, employeeID, rep)
	res := SaveResult{Rejected: rep.Items()}

	prev, err := list(ctx, employeeID)
	if err != nil {
		return res, s.fail(ctx, span, entity, employeeID, "fetch previous snapshot", err)
	}

	req := syncdiff.Diff(prev, next, codec)
	span.SetAttributes(
		attribute.Int("availability.upserts", len(req.Upsert)),
		attribute.Int("availability.deletes", len(req.DeleteIDs)),
	)
	if req.Empty() {
		res.Skipped = true
		s.metrics.save(entity, "unchanged", 0, 0, s.now().Sub(start))
		s.logger.DebugContext(ctx, "availability unchanged", "entity", entity, "employee_id", employeeID)
		return res, nil
	}

	if err := merge(ctx, employeeID, req); err != nil {
		return res, s.fail(ctx, span, entity, employeeID, "merge", err)
	}

	res.Upserted = len(req.Upsert)
	res.Deleted = len(req.DeleteIDs)
	s.metrics.save(entity, "merged", res.Upserted, res.Deleted, s.now().Sub(start))
	s.logger.InfoContext(ctx, "availability saved",
		"entity", entity,
		"employee_id", employeeID,
		"upserted", res.Upserted,
		"deleted", res.Deleted,
	)
	return res, nil
}

func (s *Service) fail(ctx context.Context, span trace.Span, entity string, employeeID int64, stage string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, stage)
	s.metrics.save(entity, "failed", 0, 0, 0)
	s.logger.ErrorContext(ctx, "availability save failed", "entity", entity, "employee_id", employeeID, "stage", stage, "err", err)
	return fmt.Errorf("%w: %s: %w", ErrSaveFailed, stage, err)
}

func (s *Service) observeRejected(ctx context.Context, entity string, employeeID int64, rep *diag.Report) {
	if rep.Len() == 0 {
		return
	}
	for kind, n := range rep.CountByKind() {
		s.metrics.rejected(entity, kind, n)
	}
	s.logger.WarnContext(ctx, "availability input rejected",
		"entity", entity,
		"employee_id", employeeID,
		"count", rep.Len(),
		"first", rep.Items()[0].String(),
	)
}
