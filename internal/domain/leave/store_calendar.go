package leave

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

func (s *PgStore) CreateCalendar(ctx context.Context, cal Calendar) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO leave_calendars (id, year, country, created_at)
    VALUES ($1,$2,$3,$4)
  `, cal.ID, cal.Year, cal.Country, cal.CreatedAt)
	return err
}

func (s *PgStore) GetCalendar(ctx context.Context, calendarID string) (Calendar, error) {
	var cal Calendar
	err := s.DB.QueryRow(ctx, "SELECT id, year, country, created_at FROM leave_calendars WHERE id = $1", calendarID).
		Scan(&cal.ID, &cal.Year, &cal.Country, &cal.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Calendar{}, ErrCalendarNotFound
	}
	if err != nil {
		return Calendar{}, err
	}
	cals := []Calendar{cal}
	if err := s.loadCalendarEntries(ctx, cals); err != nil {
		return Calendar{}, err
	}
	return cals[0], nil
}

func (s *PgStore) ListCalendars(ctx context.Context) ([]Calendar, error) {
	rows, err := s.DB.Query(ctx, "SELECT id, year, country, created_at FROM leave_calendars ORDER BY year, country")
	if err != nil {
		return nil, err
	}
	var out []Calendar
	for rows.Next() {
		var cal Calendar
		if err := rows.Scan(&cal.ID, &cal.Year, &cal.Country, &cal.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, cal)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, s.loadCalendarEntries(ctx, out)
}

func (s *PgStore) loadCalendarEntries(ctx context.Context, cals []Calendar) error {
	if len(cals) == 0 {
		return nil
	}
	index := make(map[string]int, len(cals))
	ids := make([]string, 0, len(cals))
	for i, cal := range cals {
		index[cal.ID] = i
		ids = append(ids, cal.ID)
	}

	rows, err := s.DB.Query(ctx, `
    SELECT calendar_id, id, date, name, recurring
    FROM leave_holidays
    WHERE calendar_id = ANY($1)
    ORDER BY date
  `, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var calendarID string
		var h Holiday
		if err := rows.Scan(&calendarID, &h.ID, &h.Date, &h.Name, &h.Recurring); err != nil {
			rows.Close()
			return err
		}
		h.Date = DateOnly(h.Date)
		cals[index[calendarID]].Holidays = append(cals[index[calendarID]].Holidays, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.DB.Query(ctx, `
    SELECT calendar_id, id, start_date, end_date, reason
    FROM leave_blocked_periods
    WHERE calendar_id = ANY($1)
    ORDER BY start_date
  `, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var calendarID string
		var bp BlockedPeriod
		if err := rows.Scan(&calendarID, &bp.ID, &bp.StartDate, &bp.EndDate, &bp.Reason); err != nil {
			return err
		}
		bp.StartDate, bp.EndDate = DateOnly(bp.StartDate), DateOnly(bp.EndDate)
		cals[index[calendarID]].BlockedPeriods = append(cals[index[calendarID]].BlockedPeriods, bp)
	}
	return rows.Err()
}

func (s *PgStore) AddHoliday(ctx context.Context, calendarID string, holiday Holiday) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO leave_holidays (id, calendar_id, date, name, recurring)
    VALUES ($1,$2,$3,$4,$5)
  `, holiday.ID, calendarID, holiday.Date, holiday.Name, holiday.Recurring)
	return err
}

func (s *PgStore) RemoveHoliday(ctx context.Context, calendarID, holidayID string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM leave_holidays WHERE calendar_id = $1 AND id = $2", calendarID, holidayID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("holiday %w", ErrNotFound)
	}
	return nil
}

func (s *PgStore) AddBlockedPeriod(ctx context.Context, calendarID string, period BlockedPeriod) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT id FROM leave_calendars WHERE id = $1 FOR UPDATE", calendarID); err != nil {
		return err
	}
	rows, err := tx.Query(ctx, `
    SELECT id, start_date, end_date, reason
    FROM leave_blocked_periods
    WHERE calendar_id = $1
  `, calendarID)
	if err != nil {
		return err
	}
	var existing []BlockedPeriod
	for rows.Next() {
		var bp BlockedPeriod
		if err := rows.Scan(&bp.ID, &bp.StartDate, &bp.EndDate, &bp.Reason); err != nil {
			rows.Close()
			return err
		}
		existing = append(existing, bp)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if err := CheckBlockedPeriodOverlap(existing, period); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
    INSERT INTO leave_blocked_periods (id, calendar_id, start_date, end_date, reason)
    VALUES ($1,$2,$3,$4,$5)
  `, period.ID, calendarID, period.StartDate, period.EndDate, period.Reason); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PgStore) RemoveBlockedPeriod(ctx context.Context, calendarID, periodID string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM leave_blocked_periods WHERE calendar_id = $1 AND id = $2", calendarID, periodID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("blocked period %w", ErrNotFound)
	}
	return nil
}
