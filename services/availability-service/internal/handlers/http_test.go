package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/md-rashed-zaman/availability/services/availability-service/internal/daterange"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/diag"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/reconcile"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/schedule"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/storage"
	"golang.org/x/text/language"
)

type fakeService struct {
	savedWeekly  *schedule.WeeklyAvailability
	savedDaysOff []schedule.DayOff
	saveErr      error
	window       daterange.Range
	from         daterange.Date
	day          daterange.Date
	employee     int64
}

func (f *fakeService) LoadWeekly(_ context.Context, id int64) (schedule.WeeklyAvailability, []diag.Rejection, error) {
	f.employee = id
	return schedule.NewWeeklyAvailability(nil), nil, nil
}

func (f *fakeService) SaveWeekly(_ context.Context, id int64, vm schedule.WeeklyAvailability) (reconcile.SaveResult, error) {
	f.employee = id
	f.savedWeekly = &vm
	return reconcile.SaveResult{Upserted: 1}, f.saveErr
}

func (f *fakeService) LoadSpecialDays(context.Context, int64) ([]schedule.Override, []diag.Rejection, error) {
	r, _ := daterange.NormalizeRange("2025-12-24", "2025-12-26")
	return []schedule.Override{{DateRange: r}}, []diag.Rejection{{Kind: diag.KindDateRange, Raw: "x", Reason: "bad"}}, nil
}

func (f *fakeService) SaveSpecialDays(context.Context, int64, []schedule.Override) (reconcile.SaveResult, error) {
	return reconcile.SaveResult{Skipped: true}, f.saveErr
}

func (f *fakeService) LoadDaysOff(context.Context, int64) ([]schedule.DayOff, []diag.Rejection, error) {
	return nil, nil, errors.New("db down")
}

func (f *fakeService) SaveDaysOff(_ context.Context, _ int64, list []schedule.DayOff) (reconcile.SaveResult, error) {
	f.savedDaysOff = list
	return reconcile.SaveResult{Upserted: len(list)}, f.saveErr
}

func (f *fakeService) UpcomingDaysOff(_ context.Context, _ int64, from daterange.Date) ([]schedule.Upcoming, error) {
	f.from = from
	r, _ := daterange.NormalizeRange("2026-06-20", "2026-06-22")
	return []schedule.Upcoming{{DayOff: schedule.DayOff{Title: "Summer", Range: r, RepeatYearly: true}, Occurrence: r}}, nil
}

func (f *fakeService) DayOffCalendar(_ context.Context, _ int64, window daterange.Range) ([]schedule.Upcoming, error) {
	f.window = window
	return nil, nil
}

func (f *fakeService) SpecialDaysOn(_ context.Context, _ int64, day daterange.Date) ([]schedule.OverrideOccurrence, error) {
	f.day = day
	r, _ := daterange.NormalizeRange("2024-12-24", "2024-12-26")
	occ, _ := daterange.NormalizeRange("2026-12-24", "2026-12-26")
	return []schedule.OverrideOccurrence{{Override: schedule.Override{DateRange: r, Repeat: true}, Occurrence: occ}}, nil
}

func (f *fakeService) SpecialDayCalendar(_ context.Context, _ int64, window daterange.Range) ([]schedule.OverrideOccurrence, error) {
	f.window = window
	return nil, nil
}

func newTestHandler(svc Service) http.Handler {
	h := New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{Locale: language.German})
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func do(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestEmployeeIDRequired(t *testing.T) {
	handler := newTestHandler(&fakeService{})
	for _, target := range []string{"/api/v1/availability/weekly", "/api/v1/availability/weekly?employee_id=abc", "/api/v1/availability/weekly?employee_id=-3"} {
		if rec := do(t, handler, http.MethodGet, target, ""); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/availability/weekly", nil)
	req.Header.Set("X-Employee-Id", "12")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("header id: expected 200, got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	rec := do(t, newTestHandler(&fakeService{}), http.MethodPost, "/api/v1/availability/weekly?employee_id=1", "{}")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if rec.Header().Get("Allow") != "GET, PUT" {
		t.Fatalf("unexpected Allow header %q", rec.Header().Get("Allow"))
	}
}

func TestGetWeekly(t *testing.T) {
	svc := &fakeService{}
	rec := do(t, newTestHandler(svc), http.MethodGet, "/api/v1/availability/weekly?employee_id=7", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		EmployeeID int64                       `json:"employee_id"`
		Weekly     schedule.WeeklyAvailability `json:"weekly"`
		Rejected   []diag.Rejection            `json:"rejected"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.EmployeeID != 7 || len(body.Weekly.Days) != 7 || body.Rejected == nil {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestPutWeekly(t *testing.T) {
	svc := &fakeService{}
	payload := `{"days":[{"key":"mon","combos":[{"service_ids":[1],"work":[{"start":"09:00","end":"17:00"}],"breaks":[],"sort_index":0}]}]}`
	rec := do(t, newTestHandler(svc), http.MethodPut, "/api/v1/availability/weekly?employee_id=7", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.savedWeekly == nil || len(svc.savedWeekly.Days) != 1 || svc.savedWeekly.Days[0].Combos[0].Work[0].End != "17:00" {
		t.Fatalf("unexpected saved view model %+v", svc.savedWeekly)
	}
	if !strings.Contains(rec.Body.String(), `"rejected":[]`) {
		t.Fatalf("expected empty rejected list, got %s", rec.Body.String())
	}
}

func TestPutInvalidJSON(t *testing.T) {
	for _, body := range []string{"", "{", `{"days":[]} trailing`} {
		rec := do(t, newTestHandler(&fakeService{}), http.MethodPut, "/api/v1/availability/weekly?employee_id=7", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestSaveErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: merge: %w", reconcile.ErrSaveFailed, fmt.Errorf("day off 3: %w", storage.ErrStaleRecord)), http.StatusConflict},
		{fmt.Errorf("%w: merge: boom", reconcile.ErrSaveFailed), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		svc := &fakeService{saveErr: tc.err}
		rec := do(t, newTestHandler(svc), http.MethodPut, "/api/v1/availability/days-off?employee_id=7", `{"days_off":[]}`)
		if rec.Code != tc.code {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.code, rec.Code)
		}
	}
}

func TestPutDaysOffLenientDates(t *testing.T) {
	svc := &fakeService{}
	payload := `{"days_off":[{"title":"Vacation","range":{"start":"01.08.2026","end":"2026-08-14"}},{"title":"Broken","range":{"start":"2026-13-01","end":"2026-08-14"}}]}`
	rec := do(t, newTestHandler(svc), http.MethodPut, "/api/v1/availability/days-off?employee_id=7", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(svc.savedDaysOff) != 2 || svc.savedDaysOff[0].Range.Start.String() != "2026-08-01" || svc.savedDaysOff[1].Range.Valid() {
		t.Fatalf("unexpected decoded days off %+v", svc.savedDaysOff)
	}
}

func TestGetSpecialDaysDisplay(t *testing.T) {
	rec := do(t, newTestHandler(&fakeService{}), http.MethodGet, "/api/v1/availability/special-days?employee_id=7", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"display":"24. Dezember 2025 - 26. Dezember 2025"`) {
		t.Fatalf("expected localized display, got %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"kind":"date_range"`) {
		t.Fatalf("expected rejections in body, got %s", rec.Body.String())
	}
}

func TestLoadFailure(t *testing.T) {
	rec := do(t, newTestHandler(&fakeService{}), http.MethodGet, "/api/v1/availability/days-off?employee_id=7", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestUpcomingDaysOff(t *testing.T) {
	svc := &fakeService{}
	handler := newTestHandler(svc)
	if rec := do(t, handler, http.MethodGet, "/api/v1/availability/days-off/upcoming?employee_id=7&from=2026-02-30", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for impossible date, got %d", rec.Code)
	}
	rec := do(t, handler, http.MethodGet, "/api/v1/availability/days-off/upcoming?employee_id=7&from=01.02.2026", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.from.String() != "2026-02-01" {
		t.Fatalf("unexpected from %v", svc.from)
	}
	if !strings.Contains(rec.Body.String(), `"occurrence":{"start":"2026-06-20","end":"2026-06-22"}`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestDayOffCalendarWindow(t *testing.T) {
	svc := &fakeService{}
	handler := newTestHandler(svc)
	for _, q := range []string{"start=2026-02-01", "start=2026-03-01&end=2026-02-01", "start=2020-01-01&end=2026-01-01"} {
		if rec := do(t, handler, http.MethodGet, "/api/v1/availability/days-off/calendar?employee_id=7&"+q, ""); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", q, rec.Code)
		}
	}
	rec := do(t, handler, http.MethodGet, "/api/v1/availability/days-off/calendar?employee_id=7&start=2026-01-01&end=2026-12-31", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.window.String() != "2026-01-01..2026-12-31" {
		t.Fatalf("unexpected window %v", svc.window)
	}
	if !strings.Contains(rec.Body.String(), `"occurrences":[]`) {
		t.Fatalf("expected empty occurrences, got %s", rec.Body.String())
	}
}

func TestSpecialDaysOn(t *testing.T) {
	svc := &fakeService{}
	handler := newTestHandler(svc)
	if rec := do(t, handler, http.MethodGet, "/api/v1/availability/special-days/on?employee_id=7&date=2026-13-01", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid date, got %d", rec.Code)
	}
	rec := do(t, handler, http.MethodGet, "/api/v1/availability/special-days/on?employee_id=7&date=2026-12-25", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.day.String() != "2026-12-25" {
		t.Fatalf("unexpected day %v", svc.day)
	}
	if !strings.Contains(rec.Body.String(), `"display":"24. Dezember 2026 - 26. Dezember 2026"`) {
		t.Fatalf("expected the occurrence display, got %s", rec.Body.String())
	}
}

func TestSpecialDayCalendarWindow(t *testing.T) {
	svc := &fakeService{}
	handler := newTestHandler(svc)
	if rec := do(t, handler, http.MethodGet, "/api/v1/availability/special-days/calendar?employee_id=7&start=2026-02-01", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	rec := do(t, handler, http.MethodGet, "/api/v1/availability/special-days/calendar?employee_id=7&start=2026-01-01&end=2026-12-31", "")
	if rec.Code != http.StatusOK || svc.window.String() != "2026-01-01..2026-12-31" {
		t.Fatalf("unexpected response %d window %v", rec.Code, svc.window)
	}
	if !strings.Contains(rec.Body.String(), `"occurrences":[]`) {
		t.Fatalf("expected empty occurrences, got %s", rec.Body.String())
	}
}
