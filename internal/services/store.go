package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cast"

	"snoozed/internal/models"
	"snoozed/internal/providers"
	"snoozed/internal/storage/interfaces"
)

// Session keys for the one-shot recovery notice.
const (
	SessionPendingRecovery      = "pendingRecoveryNotification"
	SessionLastRecoveryNotified = "lastRecoveryNotifiedAt"
)

// lock key shared by schemaVersion, items, schedule and the legacy document.
const documentLock = "document"

var documentKeys = []string{models.KeySchemaVersion, models.KeyItems, models.KeySchedule, models.KeySnoozedTabs}

// loadLocked reads the persisted document, repairing, migrating or resetting
// it as needed. The caller holds the document lock.
func (s *SnoozeService) loadLocked(ctx context.Context) (models.DocumentV2, error) {
	values, err := s.gateway.Get(ctx, documentKeys...)
	if err != nil {
		if errors.Is(err, interfaces.ErrCorruptStore) {
			return s.resetLocked(ctx, 0, []string{err.Error()})
		}
		return models.DocumentV2{}, err
	}

	_, hasVersion := values[models.KeySchemaVersion]
	legacy, hasLegacy := values[models.KeySnoozedTabs]

	switch {
	case hasVersion:
		doc, err := s.loadCurrentLocked(ctx, values)
		if err != nil {
			return doc, err
		}
		if hasLegacy {
			s.logger.Warnf(providers.TypeApp, "Dropping stale legacy document next to schema version %s", values[models.KeySchemaVersion])
			if err := s.gateway.Remove(ctx, models.KeySnoozedTabs); err != nil {
				return doc, err
			}
		}
		return doc, nil
	case hasLegacy:
		return s.migrateLocked(ctx, legacy)
	case len(values) > 0:
		// items or schedule without a version marker
		return s.loadCurrentLocked(ctx, values)
	}
	return models.NewDocumentV2(), nil
}

func (s *SnoozeService) loadCurrentLocked(ctx context.Context, values map[string][]byte) (models.DocumentV2, error) {
	raw := make(map[string]any, 3)
	for _, key := range []string{models.KeySchemaVersion, models.KeyItems, models.KeySchedule} {
		data, ok := values[key]
		if !ok {
			continue
		}
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return s.resetLocked(ctx, countItems(raw), []string{fmt.Sprintf("%s is not valid JSON", key)})
		}
		raw[key] = v
	}
	if _, ok := raw[models.KeySchemaVersion]; !ok {
		raw[models.KeySchemaVersion] = int(models.V2)
	}

	doc, result := models.ParseDocument(raw)
	if !result.Valid && !result.Repairable {
		return s.resetLocked(ctx, countItems(raw), result.Errors)
	}
	current := doc.ToV2()
	if !result.Valid {
		s.logger.Warnf(providers.TypeApp, "Repairing store: %s", strings.Join(result.Errors, "; "))
		s.metrics.IncStoreRepairs("sanitized")
		if err := s.persistLocked(ctx, current); err != nil {
			return current, err
		}
	}
	return current, nil
}

// migrateLocked converts the legacy document and removes the legacy key.
func (s *SnoozeService) migrateLocked(ctx context.Context, data []byte) (models.DocumentV2, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return s.resetLocked(ctx, 0, []string{"legacy document is not valid JSON"})
	}
	doc, result := models.ParseDocument(raw)
	if doc.Version != models.V1 {
		// a schemaVersion inside the legacy key
		result.Valid, result.Repairable = false, false
	}
	if !result.Valid && !result.Repairable {
		lost := countItems(raw)
		if _, err := s.resetLocked(ctx, lost, result.Errors); err != nil {
			return models.DocumentV2{}, err
		}
		return models.NewDocumentV2(), s.gateway.Remove(ctx, models.KeySnoozedTabs)
	}
	if !result.Valid {
		s.logger.Warnf(providers.TypeApp, "Repairing legacy store before migration: %s", strings.Join(result.Errors, "; "))
		s.metrics.IncStoreRepairs("sanitized")
	}

	current := doc.ToV2()
	if err := s.persistLocked(ctx, current); err != nil {
		return current, err
	}
	if err := s.gateway.Remove(ctx, models.KeySnoozedTabs); err != nil {
		return current, err
	}
	s.metrics.IncStoreRepairs("migrated")
	s.logger.Infof(providers.TypeApp, "Migrated %d snoozed items to schema version %d", current.Len(), models.V2)
	return current, nil
}

// resetLocked replaces an unrepairable document with an empty one and
// raises the recovery flag.
func (s *SnoozeService) resetLocked(ctx context.Context, lost int, problems []string) (models.DocumentV2, error) {
	err := fmt.Errorf("%w: %s", ErrStructuralInvalid, strings.Join(problems, "; "))
	s.logger.Errorf(providers.TypeApp, "Resetting store, %d items lost: %s", lost, err)
	s.metrics.IncStoreRepairs("reset")

	empty := models.NewDocumentV2()
	if err := s.persistLocked(ctx, empty); err != nil {
		return empty, err
	}
	if err := s.session.Set(SessionPendingRecovery, []byte(strconv.Itoa(lost))); err != nil {
		s.logger.Warnf(providers.TypeApp, "Unable to record recovery flag: %s", err)
	}
	return empty, nil
}

// persistLocked validates doc and writes it in one Set.
func (s *SnoozeService) persistLocked(ctx context.Context, doc models.DocumentV2) error {
	envelope := models.NewEnvelope(doc)
	raw, err := models.Raw(envelope)
	if err != nil {
		return err
	}
	if result := models.ValidateV2(raw); !result.Valid {
		return fmt.Errorf("%w: refusing to write: %s", ErrStructuralInvalid, strings.Join(result.Errors, "; "))
	}

	items, err := json.Marshal(envelope.Items)
	if err != nil {
		return err
	}
	schedule, err := json.Marshal(envelope.Schedule)
	if err != nil {
		return err
	}
	err = s.gateway.Set(ctx, map[string][]byte{
		models.KeySchemaVersion: []byte(strconv.Itoa(int(models.V2))),
		models.KeyItems:         items,
		models.KeySchedule:      schedule,
	})
	if err != nil {
		return err
	}
	s.metrics.SetSnoozedItems(doc.Len())
	return nil
}

// countItems estimates how many items a damaged raw document held.
func countItems(raw any) int {
	m, ok := raw.(map[string]any)
	if !ok {
		return 0
	}
	if items, ok := m[models.KeyItems].(map[string]any); ok {
		return len(items)
	}
	n := 0
	for key, v := range m {
		if key == models.TabCountKey {
			continue
		}
		if list, ok := v.([]any); ok {
			n += len(list)
		}
	}
	if n == 0 {
		n = cast.ToInt(m[models.TabCountKey])
	}
	return max(n, 0)
}
