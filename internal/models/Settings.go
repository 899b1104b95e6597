package models

import (
	"github.com/spf13/cast"
)

const (
	SettingStartDay     = "start-day"
	SettingEndDay       = "end-day"
	SettingStartWeekend = "start-weekend"
	SettingWeekBegin    = "week-begin"
	SettingWeekendBegin = "weekend-begin"
	SettingLaterToday   = "later-today"
	SettingSomeday      = "someday"
	SettingOpenNewTab   = "open-new-tab"
	SettingBadge        = "badge"
	SettingTimezone     = "timezone"
)

// Settings are the user preferences the schedule calculator and the wake
// scheduler read. Flags are kept as "true"/"false" strings.
type Settings struct {
	StartDay     string `json:"start-day" validate:"required"`
	EndDay       string `json:"end-day" validate:"required"`
	StartWeekend string `json:"start-weekend" validate:"required"`
	WeekBegin    int    `json:"week-begin" validate:"min:0|max:6"`
	WeekendBegin int    `json:"weekend-begin" validate:"min:0|max:6"`
	LaterToday   int    `json:"later-today" validate:"min:1|max:23"`
	Someday      int    `json:"someday" validate:"min:1|max:120"`
	OpenNewTab   string `json:"open-new-tab" validate:"in:true,false"`
	Badge        string `json:"badge" validate:"in:true,false"`
	Timezone     string `json:"timezone"`
}

func DefaultSettings() Settings {
	return Settings{
		StartDay:     "9:00 AM",
		EndDay:       "6:00 PM",
		StartWeekend: "10:00 AM",
		WeekBegin:    1,
		WeekendBegin: 6,
		LaterToday:   3,
		Someday:      3,
		OpenNewTab:   "true",
		Badge:        "true",
		Timezone:     "Local",
	}
}

// SettingsFromMap overlays stored values on the defaults. Values of the
// wrong type fall back to the default for that key.
func SettingsFromMap(m map[string]any) Settings {
	s := DefaultSettings()
	str := func(key string, dst *string) {
		if v, ok := m[key]; ok {
			if out, err := cast.ToStringE(v); err == nil && out != "" {
				*dst = out
			}
		}
	}
	num := func(key string, dst *int) {
		if v, ok := m[key]; ok {
			if out, err := cast.ToIntE(v); err == nil {
				*dst = out
			}
		}
	}

	str(SettingStartDay, &s.StartDay)
	str(SettingEndDay, &s.EndDay)
	str(SettingStartWeekend, &s.StartWeekend)
	num(SettingWeekBegin, &s.WeekBegin)
	num(SettingWeekendBegin, &s.WeekendBegin)
	num(SettingLaterToday, &s.LaterToday)
	num(SettingSomeday, &s.Someday)
	str(SettingOpenNewTab, &s.OpenNewTab)
	str(SettingBadge, &s.Badge)
	str(SettingTimezone, &s.Timezone)
	return s
}

func (s Settings) OpensInCurrentWindow() bool {
	return cast.ToBool(s.OpenNewTab)
}

func (s Settings) BadgeEnabled() bool {
	return s.Badge != "false"
}
