package leave_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrleave/internal/domain/leave"
)

func TestHolidaysReduceWorkingDays(t *testing.T) {
	f := newFixture(t)
	cal, err := f.svc.Calendar.CreateCalendar(f.ctx, 2025, "")
	require.NoError(t, err)
	_, err = f.svc.Calendar.AddHoliday(f.ctx, cal.ID, day(2025, 3, 19), "Spring day", false)
	require.NoError(t, err)

	fr, err := f.svc.Calendar.CreateCalendar(f.ctx, 2025, "fr")
	require.NoError(t, err)
	assert.Equal(t, "FR", fr.Country)
	_, err = f.svc.Calendar.AddHoliday(f.ctx, fr.ID, day(2025, 3, 18), "French only", false)
	require.NoError(t, err)

	req := f.mustSubmit("e1", typeAnnual, day(2025, 3, 17), day(2025, 3, 21))
	assert.Equal(t, 5, req.TotalDays)
	assert.Equal(t, 4, req.WorkingDays)
}

func TestRecurringHolidayProjectsIntoLaterYears(t *testing.T) {
	f := newFixture(t)
	cal, err := f.svc.Calendar.CreateCalendar(f.ctx, 2024, "")
	require.NoError(t, err)
	_, err = f.svc.Calendar.AddHoliday(f.ctx, cal.ID, day(2024, 12, 25), "Christmas", true)
	require.NoError(t, err)

	days, err := f.svc.Calendar.TotalWorkingDays(f.ctx, "e1", day(2025, 12, 22), day(2025, 12, 26))
	require.NoError(t, err)
	assert.Equal(t, 4, days)
}

func TestWeekendsAreNotWorkingDays(t *testing.T) {
	f := newFixture(t)
	days, err := f.svc.Calendar.TotalWorkingDays(f.ctx, "e1", day(2025, 3, 14), day(2025, 3, 17))
	require.NoError(t, err)
	assert.Equal(t, 2, days)

	days, err = f.svc.Calendar.TotalWorkingDays(f.ctx, "e1", day(2025, 3, 17), day(2025, 3, 14))
	require.NoError(t, err)
	assert.Zero(t, days)
}

func TestBlockedPeriods(t *testing.T) {
	f := newFixture(t)
	cal, err := f.svc.Calendar.CreateCalendar(f.ctx, 2025, "")
	require.NoError(t, err)
	_, err = f.svc.Calendar.AddBlockedPeriod(f.ctx, cal.ID, day(2025, 4, 1), day(2025, 4, 5), "year-end close")
	require.NoError(t, err)

	_, err = f.svc.Calendar.AddBlockedPeriod(f.ctx, cal.ID, day(2025, 4, 4), day(2025, 4, 10), "audit")
	assert.ErrorIs(t, err, leave.ErrValidation)
	_, err = f.svc.Calendar.AddBlockedPeriod(f.ctx, cal.ID, day(2025, 4, 10), day(2025, 4, 4), "backwards")
	assert.Equal(t, leave.RuleDateRange, ruleOf(err))

	_, err = f.submit("e1", typeAnnual, day(2025, 4, 3), day(2025, 4, 4))
	assert.Equal(t, leave.RuleBlockedPeriod, ruleOf(err))

	f.mustSubmit("e1", typeAnnual, day(2025, 4, 7), day(2025, 4, 8))
}

func TestBlockedPeriodRunningIntoNextYear(t *testing.T) {
	f := newFixture(t)
	cal, err := f.svc.Calendar.CreateCalendar(f.ctx, 2025, "")
	require.NoError(t, err)
	_, err = f.svc.Calendar.AddBlockedPeriod(f.ctx, cal.ID, day(2025, 12, 22), day(2026, 1, 9), "year-end freeze")
	require.NoError(t, err)

	_, err = f.submit("e1", typeAnnual, day(2026, 1, 5), day(2026, 1, 7))
	assert.Equal(t, leave.RuleBlockedPeriod, ruleOf(err))

	f.mustSubmit("e1", typeAnnual, day(2026, 1, 12), day(2026, 1, 13))
}

func TestCalendarValidation(t *testing.T) {
	f := newFixture(t)
	cal, err := f.svc.Calendar.CreateCalendar(f.ctx, 2025, "")
	require.NoError(t, err)

	_, err = f.svc.Calendar.CreateCalendar(f.ctx, 2025, "")
	assert.ErrorIs(t, err, leave.ErrValidation)

	_, err = f.svc.Calendar.AddHoliday(f.ctx, cal.ID, day(2026, 1, 1), "New year", false)
	assert.ErrorIs(t, err, leave.ErrValidation)

	_, err = f.svc.Calendar.AddHoliday(f.ctx, "missing", day(2025, 1, 1), "New year", false)
	assert.ErrorIs(t, err, leave.ErrCalendarNotFound)

	h, err := f.svc.Calendar.AddHoliday(f.ctx, cal.ID, day(2025, 1, 1), "New year", true)
	require.NoError(t, err)
	require.NoError(t, f.svc.Calendar.RemoveHoliday(f.ctx, cal.ID, h.ID))
	assert.ErrorIs(t, f.svc.Calendar.RemoveHoliday(f.ctx, cal.ID, h.ID), leave.ErrNotFound)

	list, err := f.svc.Calendar.ListCalendars(f.ctx, 2025)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Empty(t, list[0].Holidays)
}
