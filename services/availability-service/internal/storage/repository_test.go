package storage

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/md-rashed-zaman/availability/libs/db"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/outbox"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/schedule"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/syncdiff"
	"github.com/md-rashed-zaman/availability/services/availability-service/migrations"
)

// openTestRepo needs a disposable Postgres; the test is skipped without one.
func openTestRepo(t *testing.T) (*Repository, *db.Pool, int64) {
	t.Helper()
	url := os.Getenv("AVAILABILITY_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("AVAILABILITY_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.Open(ctx, url, db.Options{MaxConns: 2})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := migrations.Apply(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	employeeID := time.Now().UnixNano()
	return NewRepository(pool, outbox.NewRepository()), pool, employeeID
}

func ptr[T any](v T) *T { return &v }

func TestWorkdaySetsMergeRoundTrip(t *testing.T) {
	repo, pool, emp := openTestRepo(t)
	ctx := context.Background()

	err := repo.MergeWorkdaySets(ctx, emp, syncdiff.MergeRequest[schedule.WorkdaySet]{Upsert: []schedule.WorkdaySet{{
		WeekDayID: 1,
		Services:  []int64{2, 1},
		Label:     ptr("morning"),
		Intervals: []schedule.WorkdayInterval{
			{StartTime: "09:00", EndTime: "12:00"},
			{StartTime: "10:00", EndTime: "10:15", IsBreak: 1},
		},
	}}})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	got, err := repo.ListWorkdaySets(ctx, emp)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID == nil || len(got[0].Intervals) != 2 {
		t.Fatalf("unexpected sets %+v", got)
	}
	if got[0].Intervals[0].StartTime != "09:00" || got[0].Intervals[1].IsBreak != 1 {
		t.Fatalf("unexpected intervals %+v", got[0].Intervals)
	}
	if got[0].Services[0] != 1 {
		t.Fatalf("services must be stored sorted, got %v", got[0].Services)
	}

	var events int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM outbox_events WHERE aggregate_id = $1`, strconv.FormatInt(emp, 10)).Scan(&events); err != nil {
		t.Fatalf("count events: %v", err)
	}
	if events != 1 {
		t.Fatalf("expected one outbox event, got %d", events)
	}

	if err := repo.MergeWorkdaySets(ctx, emp, syncdiff.MergeRequest[schedule.WorkdaySet]{DeleteIDs: []int64{*got[0].ID}}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := repo.ListWorkdaySets(ctx, emp); len(got) != 0 {
		t.Fatalf("expected no sets after delete, got %d", len(got))
	}
}

func TestMergeIsAtomic(t *testing.T) {
	repo, _, emp := openTestRepo(t)
	ctx := context.Background()

	err := repo.MergeDaysOff(ctx, emp, syncdiff.MergeRequest[schedule.DayOffRecord]{Upsert: []schedule.DayOffRecord{
		{Name: "Vacation", StartDate: "2026-08-01", EndDate: "2026-08-14"},
		{ID: ptr(int64(-1)), Name: "Gone", StartDate: "2026-09-01", EndDate: "2026-09-01"},
	}})
	if !errors.Is(err, ErrStaleRecord) {
		t.Fatalf("expected ErrStaleRecord, got %v", err)
	}
	got, err := repo.ListDaysOff(ctx, emp)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("failed merge must not leave partial rows, got %+v", got)
	}
}

func TestSpecialDaysAllDayRow(t *testing.T) {
	repo, _, emp := openTestRepo(t)
	ctx := context.Background()

	err := repo.MergeSpecialDays(ctx, emp, syncdiff.MergeRequest[schedule.SpecialDayRow]{Upsert: []schedule.SpecialDayRow{
		{StartDate: "2026-12-24", EndDate: "2026-12-26", Repeat: ptr(true)},
		{StartDate: "2026-12-31", EndDate: "2026-12-31", StartTime: ptr("09:00"), EndTime: ptr("13:00")},
	}})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	got, err := repo.ListSpecialDays(ctx, emp)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].StartTime != nil || got[0].Repeat == nil || !*got[0].Repeat {
		t.Fatalf("unexpected all-day row %+v", got[0])
	}
	if got[1].StartTime == nil || *got[1].StartTime != "09:00" || got[1].Repeat != nil {
		t.Fatalf("unexpected timed row %+v", got[1])
	}
}
