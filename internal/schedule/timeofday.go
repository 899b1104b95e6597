package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var timeOfDaySplit = regexp.MustCompile(`[\s:]+`)

// TimeOfDay is a wall clock time parsed from an "H:MM AM/PM" setting.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	hour, meridian := t.Hour, "AM"
	if hour >= 12 {
		meridian = "PM"
	}
	if hour%12 == 0 {
		hour = 12
	} else {
		hour %= 12
	}
	return fmt.Sprintf("%d:%02d %s", hour, t.Minute, meridian)
}

// ParseTimeOfDay reads "H:MM AM/PM". 12 AM is hour 0 and PM hours below 12
// are shifted by 12.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := timeOfDaySplit.Split(strings.TrimSpace(s), -1)
	if len(parts) != 3 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrTimeOfDay, s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 1 || hour > 12 {
		return TimeOfDay{}, fmt.Errorf("%w: bad hour in %q", ErrTimeOfDay, s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 || len(parts[1]) != 2 {
		return TimeOfDay{}, fmt.Errorf("%w: bad minute in %q", ErrTimeOfDay, s)
	}

	switch strings.ToUpper(parts[2]) {
	case "AM":
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour < 12 {
			hour += 12
		}
	default:
		return TimeOfDay{}, fmt.Errorf("%w: bad meridian in %q", ErrTimeOfDay, s)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}
