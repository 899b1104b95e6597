package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gookit/validate"

	"snoozed/internal/models"
	"snoozed/internal/providers"
	"snoozed/internal/schedule"
)

// ErrInvalidSettings wraps every settings validation failure.
var ErrInvalidSettings = errors.New("invalid settings")

func (s *SnoozeService) storedSettingsLocked(ctx context.Context) (map[string]any, error) {
	values, err := s.gateway.Get(ctx, models.KeySettings)
	if err != nil {
		return nil, err
	}
	stored := make(map[string]any)
	data, ok := values[models.KeySettings]
	if !ok {
		return stored, nil
	}
	if err := json.Unmarshal(data, &stored); err != nil || stored == nil {
		s.logger.Warnf(providers.TypeApp, "Ignoring unreadable settings, using defaults")
		return make(map[string]any), nil
	}
	return stored, nil
}

// GetSettings returns the stored settings merged over the defaults.
func (s *SnoozeService) GetSettings(ctx context.Context) (models.Settings, error) {
	unlock := s.locks.lock(models.KeySettings)
	defer unlock()

	stored, err := s.storedSettingsLocked(ctx)
	if err != nil {
		return models.Settings{}, err
	}
	return models.SettingsFromMap(stored), nil
}

// SetSettings overlays partial on the stored settings. The merged result
// must still be usable by the schedule calculator.
func (s *SnoozeService) SetSettings(ctx context.Context, partial map[string]any) error {
	unlock := s.locks.lock(models.KeySettings)
	defer unlock()

	stored, err := s.storedSettingsLocked(ctx)
	if err != nil {
		return err
	}
	for k, v := range partial {
		stored[k] = v
	}
	if err := validateSettings(models.SettingsFromMap(stored), partial); err != nil {
		return err
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	return s.gateway.Set(ctx, map[string][]byte{models.KeySettings: data})
}

func validateSettings(settings models.Settings, partial map[string]any) error {
	var problems []string

	// SettingsFromMap silently falls back to defaults, so a value that
	// decoded to something else than what was sent had the wrong type.
	decoded, err := models.Raw(settings)
	if err != nil {
		return err
	}
	if m, ok := decoded.(map[string]any); ok {
		for key, sent := range partial {
			if got, known := m[key]; known && fmt.Sprint(got) != fmt.Sprint(sent) {
				problems = append(problems, fmt.Sprintf("%s has an invalid value %v", key, sent))
			}
		}
	}

	v := validate.Struct(&settings)
	if !v.Validate() {
		problems = append(problems, v.Errors.String())
	}
	for key, value := range map[string]string{
		models.SettingStartDay:     settings.StartDay,
		models.SettingEndDay:       settings.EndDay,
		models.SettingStartWeekend: settings.StartWeekend,
	} {
		if _, err := schedule.ParseTimeOfDay(value); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %s", key, err))
		}
	}
	if tz := settings.Timezone; tz != "" && tz != "Local" {
		if _, err := time.LoadLocation(tz); err != nil {
			problems = append(problems, fmt.Sprintf("timezone: unknown zone %q", tz))
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(problems, "; "))
	}
	return nil
}
