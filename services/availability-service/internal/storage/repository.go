package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/availability/libs/db"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/outbox"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/schedule"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/syncdiff"
)

// ErrStaleRecord means an upsert named an id that no longer belongs to the
// employee, usually because another editor deleted it after our snapshot.
var ErrStaleRecord = errors.New("record no longer exists")

// Repository is the Postgres store behind reconcile.Service. Every Merge runs in
// one transaction that also writes the outbox event describing it.
type Repository struct {
	pool   *db.Pool
	outbox *outbox.Repository
	now    func() time.Time
}

func NewRepository(pool *db.Pool, outboxRepo *outbox.Repository) *Repository {
	return &Repository{pool: pool, outbox: outboxRepo, now: time.Now}
}

func (r *Repository) ListWorkdaySets(ctx context.Context, employeeID int64) ([]schedule.WorkdaySet, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, week_day_id, services, locations, label, sort
		FROM workday_sets
		WHERE employee_id = $1
		ORDER BY week_day_id, sort, id
	`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.WorkdaySet
	index := map[int64]int{}
	for rows.Next() {
		var (
			s  schedule.WorkdaySet
			id int64
		)
		if err := rows.Scan(&id, &s.WeekDayID, &s.Services, &s.Locations, &s.Label, &s.Sort); err != nil {
			return nil, err
		}
		s.ID = &id
		s.Intervals = []schedule.WorkdayInterval{}
		index[id] = len(out)
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	if len(out) == 0 {
		return out, nil
	}

	ivRows, err := r.pool.Query(ctx, `
		SELECT i.id, i.workday_set_id, to_char(i.start_time, 'HH24:MI'), to_char(i.end_time, 'HH24:MI'), i.is_break
		FROM workday_intervals i
		JOIN workday_sets s ON s.id = i.workday_set_id
		WHERE s.employee_id = $1
		ORDER BY i.workday_set_id, i.is_break, i.start_time, i.id
	`, employeeID)
	if err != nil {
		return nil, err
	}
	defer ivRows.Close()

	for ivRows.Next() {
		var (
			iv      schedule.WorkdayInterval
			id      int64
			setID   int64
			isBreak bool
		)
		if err := ivRows.Scan(&id, &setID, &iv.StartTime, &iv.EndTime, &isBreak); err != nil {
			return nil, err
		}
		iv.ID = &id
		if isBreak {
			iv.IsBreak = 1
		}
		if i, ok := index[setID]; ok {
			out[i].Intervals = append(out[i].Intervals, iv)
		}
	}
	if ivRows.Err() != nil {
		return nil, ivRows.Err()
	}
	return out, nil
}

func (r *Repository) MergeWorkdaySets(ctx context.Context, employeeID int64, req syncdiff.MergeRequest[schedule.WorkdaySet]) error {
	return r.pool.InTx(ctx, func(tx pgx.Tx) error {
		if err := deleteOwned(ctx, tx, "workday_sets", employeeID, req.DeleteIDs); err != nil {
			return err
		}
		upserted := make([]int64, 0, len(req.Upsert))
		for _, s := range req.Upsert {
			id, err := upsertWorkdaySet(ctx, tx, employeeID, s)
			if err != nil {
				return err
			}
			upserted = append(upserted, id)
		}
		return r.emitMerged(ctx, tx, employeeID, "weekly", upserted, req.DeleteIDs)
	})
}

func upsertWorkdaySet(ctx context.Context, tx pgx.Tx, employeeID int64, s schedule.WorkdaySet) (int64, error) {
	services := schedule.SortedIDs(s.Services)
	locations := schedule.SortedIDs(s.Locations)

	var id int64
	if s.ID == nil {
		err := tx.QueryRow(ctx, `
			INSERT INTO workday_sets (employee_id, week_day_id, services, locations, label, sort)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, employeeID, s.WeekDayID, services, locations, s.Label, s.Sort).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("insert workday set: %w", err)
		}
	} else {
		id = *s.ID
		tag, err := tx.Exec(ctx, `
			UPDATE workday_sets
			SET week_day_id = $3,
				services = $4,
				locations = $5,
				label = $6,
				sort = $7,
				updated_at = now()
			WHERE id = $1 AND employee_id = $2
		`, id, employeeID, s.WeekDayID, services, locations, s.Label, s.Sort)
		if err != nil {
			return 0, fmt.Errorf("update workday set %d: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return 0, fmt.Errorf("workday set %d: %w", id, ErrStaleRecord)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM workday_intervals WHERE workday_set_id = $1`, id); err != nil {
			return 0, fmt.Errorf("clear intervals of workday set %d: %w", id, err)
		}
	}

	for _, iv := range s.Intervals {
		if _, err := tx.Exec(ctx, `
			INSERT INTO workday_intervals (workday_set_id, start_time, end_time, is_break)
			VALUES ($1, $2::text::time, $3::text::time, $4)
		`, id, iv.StartTime, iv.EndTime, iv.IsBreak != 0); err != nil {
			return 0, fmt.Errorf("insert interval of workday set %d: %w", id, err)
		}
	}
	return id, nil
}

func (r *Repository) ListSpecialDays(ctx context.Context, employeeID int64) ([]schedule.SpecialDayRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD'), services, locations,
			to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), repeat
		FROM special_days
		WHERE employee_id = $1
		ORDER BY start_date, end_date, start_time NULLS FIRST, id
	`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.SpecialDayRow
	for rows.Next() {
		var (
			row    schedule.SpecialDayRow
			id     int64
			repeat bool
		)
		if err := rows.Scan(&id, &row.StartDate, &row.EndDate, &row.Services, &row.Locations, &row.StartTime, &row.EndTime, &repeat); err != nil {
			return nil, err
		}
		row.ID = &id
		if repeat {
			row.Repeat = &repeat
		}
		out = append(out, row)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) MergeSpecialDays(ctx context.Context, employeeID int64, req syncdiff.MergeRequest[schedule.SpecialDayRow]) error {
	return r.pool.InTx(ctx, func(tx pgx.Tx) error {
		if err := deleteOwned(ctx, tx, "special_days", employeeID, req.DeleteIDs); err != nil {
			return err
		}
		upserted := make([]int64, 0, len(req.Upsert))
		for _, row := range req.Upsert {
			id, err := upsertSpecialDay(ctx, tx, employeeID, row)
			if err != nil {
				return err
			}
			upserted = append(upserted, id)
		}
		return r.emitMerged(ctx, tx, employeeID, "special_days", upserted, req.DeleteIDs)
	})
}

func upsertSpecialDay(ctx context.Context, tx pgx.Tx, employeeID int64, row schedule.SpecialDayRow) (int64, error) {
	repeat := row.Repeat != nil && *row.Repeat
	args := []any{
		employeeID,
		row.StartDate,
		row.EndDate,
		schedule.SortedIDs(row.Services),
		schedule.SortedIDs(row.Locations),
		row.StartTime,
		row.EndTime,
		repeat,
	}
	if row.ID == nil {
		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO special_days (employee_id, start_date, end_date, services, locations, start_time, end_time, repeat)
			VALUES ($1, $2::text::date, $3::text::date, $4, $5, $6::text::time, $7::text::time, $8)
			RETURNING id
		`, args...).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("insert special day: %w", err)
		}
		return id, nil
	}

	id := *row.ID
	tag, err := tx.Exec(ctx, `
		UPDATE special_days
		SET start_date = $2::text::date,
			end_date = $3::text::date,
			services = $4,
			locations = $5,
			start_time = $6::text::time,
			end_time = $7::text::time,
			repeat = $8,
			updated_at = now()
		WHERE employee_id = $1 AND id = $9
	`, append(args, id)...)
	if err != nil {
		return 0, fmt.Errorf("update special day %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return 0, fmt.Errorf("special day %d: %w", id, ErrStaleRecord)
	}
	return id, nil
}

func (r *Repository) ListDaysOff(ctx context.Context, employeeID int64) ([]schedule.DayOffRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, note, to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD'), repeat_yearly
		FROM days_off
		WHERE employee_id = $1
		ORDER BY start_date, id
	`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.DayOffRecord
	for rows.Next() {
		var (
			rec    schedule.DayOffRecord
			id     int64
			yearly bool
		)
		if err := rows.Scan(&id, &rec.Name, &rec.Note, &rec.StartDate, &rec.EndDate, &yearly); err != nil {
			return nil, err
		}
		rec.ID = &id
		if yearly {
			rec.RepeatYearly = 1
		}
		out = append(out, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) MergeDaysOff(ctx context.Context, employeeID int64, req syncdiff.MergeRequest[schedule.DayOffRecord]) error {
	return r.pool.InTx(ctx, func(tx pgx.Tx) error {
		if err := deleteOwned(ctx, tx, "days_off", employeeID, req.DeleteIDs); err != nil {
			return err
		}
		upserted := make([]int64, 0, len(req.Upsert))
		for _, rec := range req.Upsert {
			id, err := upsertDayOff(ctx, tx, employeeID, rec)
			if err != nil {
				return err
			}
			upserted = append(upserted, id)
		}
		return r.emitMerged(ctx, tx, employeeID, "days_off", upserted, req.DeleteIDs)
	})
}

func upsertDayOff(ctx context.Context, tx pgx.Tx, employeeID int64, rec schedule.DayOffRecord) (int64, error) {
	args := []any{employeeID, rec.Name, rec.Note, rec.StartDate, rec.EndDate, rec.RepeatYearly != 0}
	if rec.ID == nil {
		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO days_off (employee_id, name, note, start_date, end_date, repeat_yearly)
			VALUES ($1, $2, $3, $4::text::date, $5::text::date, $6)
			RETURNING id
		`, args...).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("insert day off: %w", err)
		}
		return id, nil
	}

	id := *rec.ID
	tag, err := tx.Exec(ctx, `
		UPDATE days_off
		SET name = $2,
			note = $3,
			start_date = $4::text::date,
			end_date = $5::text::date,
			repeat_yearly = $6,
			updated_at = now()
		WHERE employee_id = $1 AND id = $7
	`, append(args, id)...)
	if err != nil {
		return 0, fmt.Errorf("update day off %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return 0, fmt.Errorf("day off %d: %w", id, ErrStaleRecord)
	}
	return id, nil
}

// deleteOwned removes ids from table, scoped to the employee. Ids that are
// already gone are ignored: the desired end state is reached either way.
func deleteOwned(ctx context.Context, tx pgx.Tx, table string, employeeID int64, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `DELETE FROM `+pgx.Identifier{table}.Sanitize()+` WHERE employee_id = $1 AND id = ANY($2)`, employeeID, ids)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}

func (r *Repository) emitMerged(ctx context.Context, tx pgx.Tx, employeeID int64, entity string, upserted, deleted []int64) error {
	if r.outbox == nil {
		return nil
	}
	evt, err := outbox.MergedEvent(outbox.MergedPayload{
		EmployeeID: employeeID,
		Entity:     entity,
		UpsertIDs:  upserted,
		DeleteIDs:  deleted,
		MergedAt:   r.now(),
	})
	if err != nil {
		return err
	}
	if _, err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}
