package schedule

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snoozed/internal/models"
)

func testSettings() models.Settings {
	s := models.DefaultSettings()
	s.Timezone = ""
	return s
}

// 2024-01-10 is a Wednesday.
func wednesday(hour, minute int) time.Time {
	return time.Date(2024, time.January, 10, hour, minute, 42, 123, time.UTC)
}

func day(d, hour, minute int) time.Time {
	return time.Date(2024, time.January, d, hour, minute, 0, 0, time.UTC)
}

func TestDaysToNextDay(t *testing.T) {
	cases := []struct{ current, target, want int }{
		{5, 1, 3},
		{1, 5, 4},
		{3, 3, 7},
		{0, 6, 6},
		{6, 0, 1},
	}
	for _, c := range cases {
		got, err := DaysToNextDay(c.current, c.target)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "%d -> %d", c.current, c.target)
	}
}

func TestDaysToNextDay_OutOfRange(t *testing.T) {
	for _, args := range [][2]int{{-1, 3}, {7, 3}, {3, -1}, {3, 7}} {
		_, err := DaysToNextDay(args[0], args[1])
		assert.ErrorIs(t, err, ErrWeekdayRange)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	cases := map[string]TimeOfDay{
		"9:00 AM":  {9, 0},
		"12:00 AM": {0, 0},
		"12:30 PM": {12, 30},
		"6:00 PM":  {18, 0},
		"11:59 pm": {23, 59},
		" 7:05 AM": {7, 5},
	}
	for in, want := range cases {
		got, err := ParseTimeOfDay(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "9:00", "13:00 PM", "9:60 AM", "9:0 AM", "nine:00 AM", "9:00 XM"} {
		_, err := ParseTimeOfDay(bad)
		assert.ErrorIs(t, err, ErrTimeOfDay, bad)
	}
}

func TestTimeOfDay_String(t *testing.T) {
	assert.Equal(t, "12:00 AM", TimeOfDay{0, 0}.String())
	assert.Equal(t, "6:05 PM", TimeOfDay{18, 5}.String())
	assert.Equal(t, "12:30 PM", TimeOfDay{12, 30}.String())
}

func TestResolve(t *testing.T) {
	settings := testSettings()
	cases := []struct {
		interval string
		now      time.Time
		want     time.Time
	}{
		{LaterToday, wednesday(10, 15), day(10, 13, 15)},
		{ThisEvening, wednesday(10, 0), day(10, 18, 0)},
		{ThisEvening, wednesday(19, 0), day(11, 18, 0)},
		{ThisEvening, wednesday(18, 30), day(10, 18, 0)},
		{TomorrowEvening, wednesday(10, 0), day(11, 18, 0)},
		{TomorrowEvening, wednesday(3, 0), day(10, 18, 0)},
		{TwoDaysEvening, wednesday(10, 0), day(12, 18, 0)},
		{TwoDaysEvening, wednesday(5, 0), day(11, 18, 0)},
		{Tomorrow, wednesday(10, 0), day(11, 9, 0)},
		{Tomorrow, wednesday(2, 0), day(10, 9, 0)},
		{TwoDaysMorning, wednesday(10, 0), day(12, 9, 0)},
		{TwoDaysMorning, wednesday(4, 0), day(11, 9, 0)},
		{ThisWeekend, wednesday(10, 0), day(13, 9, 0)},
		{NextWeek, wednesday(10, 0), day(15, 9, 0)},
		{InAWeek, wednesday(10, 0), day(17, 9, 0)},
		{InAMonth, wednesday(10, 0), time.Date(2024, time.February, 10, 9, 0, 0, 0, time.UTC)},
		{Someday, wednesday(10, 0), time.Date(2024, time.April, 10, 9, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got, err := Resolve(c.interval, c.now, settings)
		require.NoError(t, err, c.interval)
		assert.True(t, c.want.Equal(got), "%s at %s: got %s want %s", c.interval, c.now, got, c.want)
	}
}

func TestResolve_Deterministic(t *testing.T) {
	settings := testSettings()
	now := wednesday(14, 7)
	for _, interval := range Intervals() {
		if interval == PickDate {
			continue
		}
		first, err := Resolve(interval, now, settings)
		require.NoError(t, err)
		second, err := Resolve(interval, now, settings)
		require.NoError(t, err)
		assert.Equal(t, first, second, interval)
		assert.Zero(t, first.Second())
		assert.Zero(t, first.Nanosecond())
	}
}

func TestResolve_PickDateIsUnresolved(t *testing.T) {
	_, err := Resolve(PickDate, wednesday(10, 0), testSettings())
	assert.ErrorIs(t, err, ErrUnresolved)
}

func TestResolve_UnknownInterval(t *testing.T) {
	_, err := Resolve("next-century", wednesday(10, 0), testSettings())
	assert.ErrorIs(t, err, ErrUnknownInterval)
}

func TestResolve_BadSettings(t *testing.T) {
	settings := testSettings()
	settings.EndDay = "late"
	_, err := Resolve(ThisEvening, wednesday(10, 0), settings)
	assert.ErrorIs(t, err, ErrTimeOfDay)

	settings = testSettings()
	settings.WeekBegin = 9
	_, err = Resolve(NextWeek, wednesday(10, 0), settings)
	assert.ErrorIs(t, err, ErrWeekdayRange)
}

func TestResolve_MonthOverflowNormalizes(t *testing.T) {
	now := time.Date(2024, time.January, 31, 10, 0, 0, 0, time.UTC)
	got, err := Resolve(InAMonth, now, testSettings())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Date(2024, time.March, 2, 9, 0, 0, 0, time.UTC), got, 0)
}

func TestResolve_UsesSettingsTimezone(t *testing.T) {
	settings := testSettings()
	settings.Timezone = "America/New_York"
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 15:00 UTC is 10:00 in New York.
	got, err := Resolve(ThisEvening, wednesday(15, 0), settings)
	require.NoError(t, err)
	assert.True(t, time.Date(2024, time.January, 10, 18, 0, 0, 0, loc).Equal(got))
}

func TestPostpone(t *testing.T) {
	assert.WithinDuration(t, day(10, 11, 15), Postpone(wednesday(10, 15)), 0)
}

func TestAtPickedDate(t *testing.T) {
	got, err := AtPickedDate(time.Date(2024, time.March, 3, 22, 10, 0, 0, time.UTC), testSettings())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Date(2024, time.March, 3, 9, 0, 0, 0, time.UTC), got, 0)
}
