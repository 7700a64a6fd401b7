package leave

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"hrleave/internal/domain/org"
)

// CalendarService answers working-day questions from the per-year calendars.
type CalendarService struct {
	Store     CalendarStore
	Directory org.Directory
	Now       func() time.Time
}

func NewCalendarService(store CalendarStore, directory org.Directory) *CalendarService {
	return &CalendarService{Store: store, Directory: directory, Now: time.Now}
}

// TotalWorkingDays counts the days in [start, end] that are neither weekend
// days nor holidays of any calendar covering the spanned years.
func (s *CalendarService) TotalWorkingDays(ctx context.Context, employeeID string, start, end time.Time) (int, error) {
	start, end = DateOnly(start), DateOnly(end)
	if end.Before(start) {
		return 0, nil
	}
	calendars, err := s.calendarsFor(ctx, employeeID)
	if err != nil {
		return 0, err
	}
	holidays := holidaySet(calendars, yearsSpanned(start, end))

	working := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		if _, ok := holidays[dayKey(d)]; ok {
			continue
		}
		working++
	}
	return working, nil
}

// BlockedPeriodsIntersecting returns every blocked period touching [start, end].
// Periods may run past the end of their calendar year, so every calendar is scanned.
func (s *CalendarService) BlockedPeriodsIntersecting(ctx context.Context, employeeID string, start, end time.Time) ([]BlockedPeriod, error) {
	calendars, err := s.calendarsFor(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	start, end = DateOnly(start), DateOnly(end)
	var out []BlockedPeriod
	for _, cal := range calendars {
		for _, bp := range cal.BlockedPeriods {
			if RangesOverlap(start, end, bp.StartDate, bp.EndDate) {
				out = append(out, bp)
			}
		}
	}
	return out, nil
}

// calendarsFor returns unscoped calendars plus those of the employee's country.
func (s *CalendarService) calendarsFor(ctx context.Context, employeeID string) ([]Calendar, error) {
	country := ""
	if employeeID != "" && s.Directory != nil {
		emp, err := s.Directory.GetEmployee(ctx, employeeID)
		if err != nil && !errors.Is(err, org.ErrEmployeeNotFound) {
			return nil, err
		}
		country = emp.Country
	}
	all, err := s.Store.ListCalendars(ctx)
	if err != nil {
		return nil, err
	}
	var out []Calendar
	for _, cal := range all {
		if cal.Country == "" || strings.EqualFold(cal.Country, country) {
			out = append(out, cal)
		}
	}
	return out, nil
}

func holidaySet(calendars []Calendar, years []int) map[string]struct{} {
	wanted := make(map[int]bool, len(years))
	for _, y := range years {
		wanted[y] = true
	}
	set := make(map[string]struct{})
	for _, cal := range calendars {
		for _, h := range cal.Holidays {
			if wanted[cal.Year] {
				set[dayKey(DateOnly(h.Date))] = struct{}{}
			}
			if !h.Recurring {
				continue
			}
			for _, y := range years {
				projected := time.Date(y, h.Date.Month(), h.Date.Day(), 0, 0, 0, 0, time.UTC)
				if projected.Month() == h.Date.Month() {
					set[dayKey(projected)] = struct{}{}
				}
			}
		}
	}
	return set
}

func (s *CalendarService) CreateCalendar(ctx context.Context, year int, country string) (Calendar, error) {
	if year < 1900 || year > 9999 {
		return Calendar{}, validationf(RuleInput, "invalid calendar year %d", year)
	}
	country = strings.ToUpper(strings.TrimSpace(country))
	existing, err := s.Store.ListCalendars(ctx)
	if err != nil {
		return Calendar{}, err
	}
	for _, cal := range existing {
		if cal.Year == year && cal.Country == country {
			return Calendar{}, validationf(RuleInput, "calendar for %d already exists", year)
		}
	}
	cal := Calendar{
		ID:        uuid.NewString(),
		Year:      year,
		Country:   country,
		CreatedAt: s.Now().UTC(),
	}
	if err := s.Store.CreateCalendar(ctx, cal); err != nil {
		return Calendar{}, err
	}
	return cal, nil
}

func (s *CalendarService) GetCalendar(ctx context.Context, calendarID string) (Calendar, error) {
	return s.Store.GetCalendar(ctx, calendarID)
}

func (s *CalendarService) ListCalendars(ctx context.Context, year int) ([]Calendar, error) {
	all, err := s.Store.ListCalendars(ctx)
	if err != nil {
		return nil, err
	}
	if year == 0 {
		return all, nil
	}
	var out []Calendar
	for _, cal := range all {
		if cal.Year == year {
			out = append(out, cal)
		}
	}
	return out, nil
}

func (s *CalendarService) AddHoliday(ctx context.Context, calendarID string, date time.Time, name string, recurring bool) (Holiday, error) {
	cal, err := s.Store.GetCalendar(ctx, calendarID)
	if err != nil {
		return Holiday{}, err
	}
	if strings.TrimSpace(name) == "" {
		return Holiday{}, validationf(RuleInput, "holiday name required")
	}
	date = DateOnly(date)
	if date.Year() != cal.Year {
		return Holiday{}, validationf(RuleInput, "holiday %s is outside calendar year %d", dayKey(date), cal.Year)
	}
	holiday := Holiday{ID: uuid.NewString(), Date: date, Name: name, Recurring: recurring}
	if err := s.Store.AddHoliday(ctx, calendarID, holiday); err != nil {
		return Holiday{}, err
	}
	return holiday, nil
}

func (s *CalendarService) RemoveHoliday(ctx context.Context, calendarID, holidayID string) error {
	return s.Store.RemoveHoliday(ctx, calendarID, holidayID)
}

func (s *CalendarService) AddBlockedPeriod(ctx context.Context, calendarID string, start, end time.Time, reason string) (BlockedPeriod, error) {
	cal, err := s.Store.GetCalendar(ctx, calendarID)
	if err != nil {
		return BlockedPeriod{}, err
	}
	start, end = DateOnly(start), DateOnly(end)
	if end.Before(start) {
		return BlockedPeriod{}, validationf(RuleDateRange, "blocked period ends before it starts")
	}
	if start.Year() != cal.Year {
		return BlockedPeriod{}, validationf(RuleInput, "blocked period must start in calendar year %d", cal.Year)
	}
	period := BlockedPeriod{ID: uuid.NewString(), StartDate: start, EndDate: end, Reason: reason}
	if err := s.Store.AddBlockedPeriod(ctx, calendarID, period); err != nil {
		return BlockedPeriod{}, err
	}
	return period, nil
}

func (s *CalendarService) RemoveBlockedPeriod(ctx context.Context, calendarID, periodID string) error {
	return s.Store.RemoveBlockedPeriod(ctx, calendarID, periodID)
}

// CheckBlockedPeriodOverlap enforces that blocked periods of one calendar never overlap.
func CheckBlockedPeriodOverlap(existing []BlockedPeriod, candidate BlockedPeriod) error {
	for _, bp := range existing {
		if RangesOverlap(bp.StartDate, bp.EndDate, candidate.StartDate, candidate.EndDate) {
			return validationf(RuleBlockedPeriod, "blocked period overlaps %s..%s", dayKey(bp.StartDate), dayKey(bp.EndDate))
		}
	}
	return nil
}
