package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/availability/libs/httpx"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/daterange"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/diag"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/reconcile"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/schedule"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/storage"
	"golang.org/x/text/language"
)

// Service is implemented by *reconcile.Service.
type Service interface {
	LoadWeekly(ctx context.Context, employeeID int64) (schedule.WeeklyAvailability, []diag.Rejection, error)
	SaveWeekly(ctx context.Context, employeeID int64, vm schedule.WeeklyAvailability) (reconcile.SaveResult, error)
	LoadSpecialDays(ctx context.Context, employeeID int64) ([]schedule.Override, []diag.Rejection, error)
	SaveSpecialDays(ctx context.Context, employeeID int64, overrides []schedule.Override) (reconcile.SaveResult, error)
	LoadDaysOff(ctx context.Context, employeeID int64) ([]schedule.DayOff, []diag.Rejection, error)
	SaveDaysOff(ctx context.Context, employeeID int64, list []schedule.DayOff) (reconcile.SaveResult, error)
	UpcomingDaysOff(ctx context.Context, employeeID int64, from daterange.Date) ([]schedule.Upcoming, error)
	DayOffCalendar(ctx context.Context, employeeID int64, window daterange.Range) ([]schedule.Upcoming, error)
	SpecialDaysOn(ctx context.Context, employeeID int64, day daterange.Date) ([]schedule.OverrideOccurrence, error)
	SpecialDayCalendar(ctx context.Context, employeeID int64, window daterange.Range) ([]schedule.OverrideOccurrence, error)
}

type Config struct {
	Locale          language.Tag
	CalendarMaxDays int
}

type Handler struct {
	svc             Service
	logger          *slog.Logger
	locale          language.Tag
	calendarMaxDays int
}

func New(svc Service, logger *slog.Logger, cfg Config) *Handler {
	if cfg.CalendarMaxDays <= 0 {
		cfg.CalendarMaxDays = 3 * 366
	}
	return &Handler{svc: svc, logger: logger, locale: cfg.Locale, calendarMaxDays: cfg.CalendarMaxDays}
}

// Register mounts every availability route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/availability/weekly", h.Weekly)
	mux.HandleFunc("/api/v1/availability/special-days", h.SpecialDays)
	mux.HandleFunc("/api/v1/availability/special-days/on", h.SpecialDaysOn)
	mux.HandleFunc("/api/v1/availability/special-days/calendar", h.SpecialDayCalendar)
	mux.HandleFunc("/api/v1/availability/days-off", h.DaysOff)
	mux.HandleFunc("/api/v1/availability/days-off/upcoming", h.UpcomingDaysOff)
	mux.HandleFunc("/api/v1/availability/days-off/calendar", h.DayOffCalendar)
}

const employeeIDHeader = "X-Employee-Id"

// EmployeeID reads the owner of the request from the employee_id query
// parameter or the X-Employee-Id header. It is also the rate-limit key.
func EmployeeID(r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("employee_id"))
	if raw == "" {
		raw = strings.TrimSpace(r.Header.Get(employeeIDHeader))
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *Handler) Weekly(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.requireEmployee(w, r, http.MethodGet, http.MethodPut)
	if !ok {
		return
	}

	if r.Method == http.MethodPut {
		var vm schedule.WeeklyAvailability
		if err := httpx.DecodeJSON(r, &vm); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		res, err := h.svc.SaveWeekly(r.Context(), employeeID, vm)
		if err != nil {
			h.saveError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, saveResponse(res))
		return
	}

	vm, rejected, err := h.svc.LoadWeekly(r.Context(), employeeID)
	if err != nil {
		h.loadError(w, r, "failed to load weekly availability", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"employee_id": employeeID,
		"weekly":      vm,
		"rejected":    nonNil(rejected),
	})
}

type overrideView struct {
	schedule.Override
	Display string `json:"display"`
}

func (h *Handler) SpecialDays(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.requireEmployee(w, r, http.MethodGet, http.MethodPut)
	if !ok {
		return
	}

	if r.Method == http.MethodPut {
		var req struct {
			Overrides []schedule.Override `json:"overrides"`
		}
		if err := httpx.DecodeJSON(r, &req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		res, err := h.svc.SaveSpecialDays(r.Context(), employeeID, req.Overrides)
		if err != nil {
			h.saveError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, saveResponse(res))
		return
	}

	overrides, rejected, err := h.svc.LoadSpecialDays(r.Context(), employeeID)
	if err != nil {
		h.loadError(w, r, "failed to load special days", err)
		return
	}
	out := make([]overrideView, 0, len(overrides))
	for _, o := range overrides {
		out = append(out, overrideView{Override: o, Display: daterange.FormatLong(o.DateRange, h.locale)})
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"employee_id": employeeID,
		"overrides":   out,
		"rejected":    nonNil(rejected),
	})
}

type dayOffView struct {
	schedule.DayOff
	Display string `json:"display"`
}

func (h *Handler) DaysOff(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.requireEmployee(w, r, http.MethodGet, http.MethodPut)
	if !ok {
		return
	}

	if r.Method == http.MethodPut {
		var req struct {
			DaysOff []schedule.DayOff `json:"days_off"`
		}
		if err := httpx.DecodeJSON(r, &req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		res, err := h.svc.SaveDaysOff(r.Context(), employeeID, req.DaysOff)
		if err != nil {
			h.saveError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, saveResponse(res))
		return
	}

	list, rejected, err := h.svc.LoadDaysOff(r.Context(), employeeID)
	if err != nil {
		h.loadError(w, r, "failed to load days off", err)
		return
	}
	out := make([]dayOffView, 0, len(list))
	for _, d := range list {
		out = append(out, dayOffView{DayOff: d, Display: daterange.FormatLong(d.Range, h.locale)})
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"employee_id": employeeID,
		"days_off":    out,
		"rejected":    nonNil(rejected),
	})
}

type occurrenceView struct {
	schedule.Upcoming
	Display string `json:"display"`
}

func (h *Handler) UpcomingDaysOff(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.requireEmployee(w, r, http.MethodGet)
	if !ok {
		return
	}

	var from daterange.Date
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		d, ok := daterange.ParseStrict(raw)
		if !ok {
			http.Error(w, "invalid from (use YYYY-MM-DD)", http.StatusBadRequest)
			return
		}
		from = d
	}

	list, err := h.svc.UpcomingDaysOff(r.Context(), employeeID, from)
	if err != nil {
		h.loadError(w, r, "failed to load days off", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"employee_id": employeeID,
		"upcoming":    h.occurrences(list),
	})
}

func (h *Handler) DayOffCalendar(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.requireEmployee(w, r, http.MethodGet)
	if !ok {
		return
	}

	window, ok := h.calendarWindow(w, r)
	if !ok {
		return
	}

	list, err := h.svc.DayOffCalendar(r.Context(), employeeID, window)
	if err != nil {
		h.loadError(w, r, "failed to load days off", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"employee_id": employeeID,
		"window":      window,
		"occurrences": h.occurrences(list),
	})
}

type overrideOccurrenceView struct {
	schedule.OverrideOccurrence
	Display string `json:"display"`
}

// SpecialDaysOn lists the overrides that apply on ?date, today when omitted.
func (h *Handler) SpecialDaysOn(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.requireEmployee(w, r, http.MethodGet)
	if !ok {
		return
	}

	var day daterange.Date
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		d, ok := daterange.ParseStrict(raw)
		if !ok {
			http.Error(w, "invalid date (use YYYY-MM-DD)", http.StatusBadRequest)
			return
		}
		day = d
	}

	list, err := h.svc.SpecialDaysOn(r.Context(), employeeID, day)
	if err != nil {
		h.loadError(w, r, "failed to load special days", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"employee_id": employeeID,
		"overrides":   h.overrideOccurrences(list),
	})
}

func (h *Handler) SpecialDayCalendar(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.requireEmployee(w, r, http.MethodGet)
	if !ok {
		return
	}
	window, ok := h.calendarWindow(w, r)
	if !ok {
		return
	}

	list, err := h.svc.SpecialDayCalendar(r.Context(), employeeID, window)
	if err != nil {
		h.loadError(w, r, "failed to load special days", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"employee_id": employeeID,
		"window":      window,
		"occurrences": h.overrideOccurrences(list),
	})
}

// calendarWindow reads ?start and ?end and enforces the configured maximum span.
func (h *Handler) calendarWindow(w http.ResponseWriter, r *http.Request) (daterange.Range, bool) {
	window, ok := daterange.NormalizeRange(r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	if !ok {
		http.Error(w, "start and end required (YYYY-MM-DD, start <= end)", http.StatusBadRequest)
		return daterange.Range{}, false
	}
	span := window.End.Time(time.UTC).Sub(window.Start.Time(time.UTC))
	if int(span.Hours()/24) >= h.calendarMaxDays {
		http.Error(w, "calendar window too large", http.StatusBadRequest)
		return daterange.Range{}, false
	}
	return window, true
}

func (h *Handler) overrideOccurrences(list []schedule.OverrideOccurrence) []overrideOccurrenceView {
	out := make([]overrideOccurrenceView, 0, len(list))
	for _, o := range list {
		out = append(out, overrideOccurrenceView{OverrideOccurrence: o, Display: daterange.FormatLong(o.Occurrence, h.locale)})
	}
	return out
}

func (h *Handler) occurrences(list []schedule.Upcoming) []occurrenceView {
	out := make([]occurrenceView, 0, len(list))
	for _, u := range list {
		out = append(out, occurrenceView{Upcoming: u, Display: daterange.FormatLong(u.Occurrence, h.locale)})
	}
	return out
}

func (h *Handler) requireEmployee(w http.ResponseWriter, r *http.Request, methods ...string) (int64, bool) {
	allowed := false
	for _, m := range methods {
		if r.Method == m {
			allowed = true
			break
		}
	}
	if !allowed {
		w.Header().Set("Allow", strings.Join(methods, ", "))
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return 0, false
	}
	id, ok := EmployeeID(r)
	if !ok {
		http.Error(w, "missing or invalid employee_id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) saveError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrStaleRecord):
		http.Error(w, "availability changed concurrently, reload and retry", http.StatusConflict)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "request canceled", http.StatusServiceUnavailable)
	default:
		http.Error(w, reconcile.ErrSaveFailed.Error(), http.StatusInternalServerError)
	}
	h.logger.WarnContext(r.Context(), "save rejected", "path", r.URL.Path, "request_id", httpx.RequestIDFromContext(r.Context()), "err", err)
}

func (h *Handler) loadError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg, "path", r.URL.Path, "request_id", httpx.RequestIDFromContext(r.Context()), "err", err)
	http.Error(w, msg, http.StatusInternalServerError)
}

func saveResponse(res reconcile.SaveResult) reconcile.SaveResult {
	res.Rejected = nonNil(res.Rejected)
	return res
}

func nonNil(list []diag.Rejection) []diag.Rejection {
	if list == nil {
		return []diag.Rejection{}
	}
	return list
}
