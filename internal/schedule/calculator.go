package schedule

import (
	"errors"
	"fmt"
	"time"

	"snoozed/internal/models"
)

const (
	LaterToday      = "later-today"
	ThisEvening     = "this-evening"
	TomorrowEvening = "tomorrow-evening"
	TwoDaysEvening  = "2-days-evening"
	Tomorrow        = "tomorrow"
	TwoDaysMorning  = "2-days-morning"
	ThisWeekend     = "this-weekend"
	NextWeek        = "next-week"
	InAWeek         = "in-a-week"
	InAMonth        = "in-a-month"
	Someday         = "someday"
	PickDate        = "pick-date"
)

// earlyMorningHour is the last hour still treated as "the night before" by
// the day-relative intervals.
const earlyMorningHour = 5

var (
	ErrUnresolved      = errors.New("interval needs an explicit date")
	ErrUnknownInterval = errors.New("unknown interval")
	ErrWeekdayRange    = errors.New("weekday out of range")
	ErrTimeOfDay       = errors.New("invalid time of day")
)

var intervals = []string{
	LaterToday, ThisEvening, TomorrowEvening, TwoDaysEvening, Tomorrow, TwoDaysMorning,
	ThisWeekend, NextWeek, InAWeek, InAMonth, Someday, PickDate,
}

// Intervals lists every named interval in menu order.
func Intervals() []string {
	return append([]string(nil), intervals...)
}

// DaysToNextDay counts the days from weekday current until the next
// occurrence of weekday target. The same weekday is a full week away.
func DaysToNextDay(current, target int) (int, error) {
	if current < 0 || current > 6 || target < 0 || target > 6 {
		return 0, fmt.Errorf("%w: current=%d target=%d", ErrWeekdayRange, current, target)
	}
	if target <= current {
		return 7 - current + target, nil
	}
	return target - current, nil
}

// Location resolves the settings timezone, falling back to fallback when it
// is empty, "Local" or unknown.
func Location(settings models.Settings, fallback *time.Location) *time.Location {
	if settings.Timezone == "" || settings.Timezone == "Local" {
		return fallback
	}
	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		return fallback
	}
	return loc
}

func roundNow(now time.Time, settings models.Settings) time.Time {
	return now.In(Location(settings, now.Location())).Truncate(time.Minute)
}

func at(day time.Time, addDays, addMonths int, tod TimeOfDay) time.Time {
	return time.Date(day.Year(), day.Month()+time.Month(addMonths), day.Day()+addDays,
		tod.Hour, tod.Minute, 0, 0, day.Location())
}

// Resolve turns a named interval into an absolute wake instant. The result
// depends only on its arguments.
func Resolve(interval string, now time.Time, settings models.Settings) (time.Time, error) {
	rounded := roundNow(now, settings)
	hour := rounded.Hour()

	switch interval {
	case LaterToday:
		return rounded.Add(time.Duration(settings.LaterToday) * time.Hour), nil
	case PickDate:
		return time.Time{}, ErrUnresolved
	}

	start, err := ParseTimeOfDay(settings.StartDay)
	if err != nil {
		return time.Time{}, fmt.Errorf("start-day: %w", err)
	}
	end, err := ParseTimeOfDay(settings.EndDay)
	if err != nil {
		return time.Time{}, fmt.Errorf("end-day: %w", err)
	}

	switch interval {
	case ThisEvening:
		if hour > end.Hour {
			return at(rounded, 1, 0, end), nil
		}
		return at(rounded, 0, 0, end), nil
	case TomorrowEvening:
		if hour > earlyMorningHour {
			return at(rounded, 1, 0, end), nil
		}
		return at(rounded, 0, 0, end), nil
	case TwoDaysEvening:
		if hour > earlyMorningHour {
			return at(rounded, 2, 0, end), nil
		}
		return at(rounded, 1, 0, end), nil
	case Tomorrow:
		if hour > earlyMorningHour {
			return at(rounded, 1, 0, start), nil
		}
		return at(rounded, 0, 0, start), nil
	case TwoDaysMorning:
		if hour > earlyMorningHour {
			return at(rounded, 2, 0, start), nil
		}
		return at(rounded, 1, 0, start), nil
	case ThisWeekend, NextWeek:
		target := settings.WeekendBegin
		if interval == NextWeek {
			target = settings.WeekBegin
		}
		days, err := DaysToNextDay(int(rounded.Weekday()), target)
		if err != nil {
			return time.Time{}, err
		}
		return at(rounded, days, 0, start), nil
	case InAWeek:
		return at(rounded, 7, 0, start), nil
	case InAMonth:
		return at(rounded, 0, 1, start), nil
	case Someday:
		return at(rounded, 0, settings.Someday, start), nil
	}
	return time.Time{}, fmt.Errorf("%w: %s", ErrUnknownInterval, interval)
}

// Postpone is the re-snooze instant used by notification responses: one
// hour after the rounded now.
func Postpone(now time.Time) time.Time {
	return now.Truncate(time.Minute).Add(time.Hour)
}

// AtPickedDate pins an explicitly chosen calendar date to the start-day time.
func AtPickedDate(date time.Time, settings models.Settings) (time.Time, error) {
	start, err := ParseTimeOfDay(settings.StartDay)
	if err != nil {
		return time.Time{}, fmt.Errorf("start-day: %w", err)
	}
	local := date.In(Location(settings, date.Location()))
	return at(local, 0, 0, start), nil
}
