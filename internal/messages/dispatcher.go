package messages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gookit/validate"
	"github.com/spf13/cast"

	"snoozed/internal/models"
	"snoozed/internal/providers"
	"snoozed/internal/schedule"
	"snoozed/internal/services"
)

const (
	ActionGetSnoozedTabs      = "getSnoozedTabs"
	ActionGetSnoozedTabsV2    = "getSnoozedTabsV2"
	ActionSetSnoozedTabs      = "setSnoozedTabs"
	ActionGetSettings         = "getSettings"
	ActionSetSettings         = "setSettings"
	ActionSnooze              = "snooze"
	ActionSnoozeInterval      = "snoozeInterval"
	ActionRemoveSnoozedTab    = "removeSnoozedTab"
	ActionClearAllSnoozedTabs = "clearAllSnoozedTabs"
	ActionRemoveWindowGroup   = "removeWindowGroup"
	ActionRestoreWindowGroup  = "restoreWindowGroup"
	ActionImportTabs          = "importTabs"
	ActionExportTabs          = "exportTabs"
)

var ErrRequestValidation = errors.New("invalid request")

type fieldRule struct {
	field   string
	rule    string
	message string
}

// actionRules lists what each action needs besides its name. Actions that
// take no payload map to nil.
var actionRules = map[string][]fieldRule{
	ActionGetSnoozedTabs:   nil,
	ActionGetSnoozedTabsV2: nil,
	ActionSetSnoozedTabs: {
		{"data", "required", "setSnoozedTabs requires data property"},
	},
	ActionGetSettings: nil,
	ActionSetSettings: {
		{"data", "required|jsonObject", "setSettings requires data object"},
	},
	ActionSnooze: {
		{"tab", "required|jsonObject", "snooze requires tab property"},
		{"popTime", "required|jsonNumber", "snooze requires popTime (number)"},
		{"groupId", "string", "snooze groupId must be a string"},
		{"tab.url", "string", "snooze tab.url must be a string"},
	},
	ActionSnoozeInterval: {
		{"tab", "required|jsonObject", "snoozeInterval requires tab property"},
		{"interval", "required|string|in:" + strings.Join(schedule.Intervals(), ","), "snoozeInterval requires interval (one of " + strings.Join(schedule.Intervals(), ", ") + ")"},
		{"groupId", "string", "snoozeInterval groupId must be a string"},
		{"date", "jsonNumber", "snoozeInterval date must be a number"},
		{"tab.url", "string", "snoozeInterval tab.url must be a string"},
	},
	ActionRemoveSnoozedTab: {
		{"tab", "required|jsonObject", "removeSnoozedTab requires tab property"},
	},
	ActionClearAllSnoozedTabs: nil,
	ActionRemoveWindowGroup: {
		{"groupId", "required|string", "removeWindowGroup requires groupId (string)"},
	},
	ActionRestoreWindowGroup: {
		{"groupId", "required|string", "restoreWindowGroup requires groupId (string)"},
	},
	ActionImportTabs: {
		{"data", "required|jsonObject", "importTabs requires data object"},
	},
	ActionExportTabs: nil,
}

func isObject(val any) bool {
	_, ok := val.(map[string]any)
	return ok
}

func isNumber(val any) bool {
	switch val.(type) {
	case float64, float32, int, int64, int32:
		return true
	}
	return false
}

// Validate checks a decoded request body against the rules of its action.
func Validate(req map[string]any) error {
	action, ok := req["action"].(string)
	if !ok || action == "" {
		return fmt.Errorf("%w: Request must have an action property of type string", ErrRequestValidation)
	}
	rules, known := actionRules[action]
	if !known {
		return fmt.Errorf("%w: Unknown action: %s", ErrRequestValidation, action)
	}
	if len(rules) == 0 {
		return nil
	}

	v := validate.Map(req)
	v.StopOnError = false
	v.AddValidator("jsonObject", isObject)
	v.AddValidator("jsonNumber", isNumber)
	for _, r := range rules {
		v.StringRule(r.field, r.rule)
	}
	if v.Validate() {
		return nil
	}

	var problems []string
	for _, r := range rules {
		if v.Errors.HasField(r.field) {
			problems = append(problems, r.message)
		}
	}
	if len(problems) == 0 {
		problems = append(problems, v.Errors.One())
	}
	return fmt.Errorf("%w: %s", ErrRequestValidation, strings.Join(problems, ", "))
}

// IsClientError reports whether err was caused by the request rather than
// by the daemon.
func IsClientError(err error) bool {
	return errors.Is(err, ErrRequestValidation) ||
		errors.Is(err, services.ErrSnoozeInput) ||
		errors.Is(err, services.ErrStructuralInvalid) ||
		errors.Is(err, services.ErrInvalidSettings) ||
		errors.Is(err, schedule.ErrUnresolved) ||
		errors.Is(err, schedule.ErrUnknownInterval)
}

type Dispatcher struct {
	service services.SnoozeServiceInterface
	logger  providers.Logger
}

func NewDispatcher(service services.SnoozeServiceInterface, logger providers.Logger) *Dispatcher {
	return &Dispatcher{service: service, logger: logger}
}

// Dispatch validates req and runs its action. Nothing is dispatched when
// validation fails.
func (d *Dispatcher) Dispatch(ctx context.Context, req map[string]any) (any, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	action := req["action"].(string)
	d.logger.Debugf(providers.TypePost, "Dispatching %s", action)

	ack := models.Ack{Success: true}
	switch action {
	case ActionGetSnoozedTabs, ActionGetSnoozedTabsV2:
		return d.service.GetSnoozedTabs(ctx)
	case ActionSetSnoozedTabs:
		return ack, d.service.SetSnoozedTabs(ctx, req["data"])
	case ActionGetSettings:
		return d.service.GetSettings(ctx)
	case ActionSetSettings:
		return ack, d.service.SetSettings(ctx, req["data"].(map[string]any))
	case ActionSnooze:
		tab := models.TabFromMap(req["tab"].(map[string]any))
		if tab.URL == "" {
			return nil, services.ErrSnoozeInput
		}
		_, err := d.service.Snooze(ctx, tab, cast.ToInt64(req["popTime"]), cast.ToString(req["groupId"]))
		return ack, err
	case ActionSnoozeInterval:
		tab := models.TabFromMap(req["tab"].(map[string]any))
		interval := req["interval"].(string)
		if date, ok := req["date"]; ok && interval == schedule.PickDate {
			_, err := d.service.SnoozeOnDate(ctx, tab, time.UnixMilli(cast.ToInt64(date)), cast.ToString(req["groupId"]))
			return ack, err
		}
		_, err := d.service.SnoozeInterval(ctx, tab, interval, cast.ToString(req["groupId"]))
		return ack, err
	case ActionRemoveSnoozedTab:
		return ack, d.service.RemoveSnoozedTab(ctx, models.ItemRefFromMap(req["tab"].(map[string]any)))
	case ActionClearAllSnoozedTabs:
		return ack, d.service.ClearAll(ctx)
	case ActionRemoveWindowGroup:
		return ack, d.service.RemoveWindowGroup(ctx, req["groupId"].(string))
	case ActionRestoreWindowGroup:
		return ack, d.service.RestoreWindowGroup(ctx, req["groupId"].(string))
	case ActionImportTabs:
		return d.service.ImportTabs(ctx, req["data"]), nil
	case ActionExportTabs:
		return d.service.ExportTabs(ctx)
	}
	return nil, fmt.Errorf("%w: No handler registered for action: %s", ErrRequestValidation, action)
}
