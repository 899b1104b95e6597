package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"snoozed/internal/host"
	"snoozed/internal/models"
	"snoozed/internal/providers"
	"snoozed/internal/schedule"
	"snoozed/internal/storage/interfaces"
)

var (
	ErrStructuralInvalid = errors.New("document is structurally invalid")
	ErrSnoozeInput       = errors.New("Cannot snooze a tab without a URL")
	ErrNothingToExport   = errors.New("No tabs to export.")
)

const importRejected = "Invalid data structure that cannot be repaired"

type SnoozeServiceInterface interface {
	Load(ctx context.Context) error
	GetSnoozedTabs(ctx context.Context) (models.Envelope, error)
	SetSnoozedTabs(ctx context.Context, raw any) error
	GetSettings(ctx context.Context) (models.Settings, error)
	SetSettings(ctx context.Context, partial map[string]any) error
	Snooze(ctx context.Context, tab models.Tab, popTime int64, groupID string) (models.SnoozedItem, error)
	SnoozeInterval(ctx context.Context, tab models.Tab, interval, groupID string) (models.SnoozedItem, error)
	SnoozeOnDate(ctx context.Context, tab models.Tab, date time.Time, groupID string) (models.SnoozedItem, error)
	RemoveSnoozedTab(ctx context.Context, ref models.ItemRef) error
	ClearAll(ctx context.Context) error
	RemoveWindowGroup(ctx context.Context, groupID string) error
	RestoreWindowGroup(ctx context.Context, groupID string) error
	ImportTabs(ctx context.Context, raw any) models.ImportResult
	ExportTabs(ctx context.Context) (models.Envelope, error)
	DueItems(ctx context.Context, now time.Time) (bucketKeys []string, ids []string, err error)
	PopItems(ctx context.Context, ids []string) ([]models.SnoozedItem, error)
	Reschedule(ctx context.Context, ids []string, popTime int64) (int, error)
	Count(ctx context.Context) (int, error)
	BadgeText(ctx context.Context) (string, error)
}

// SnoozeService owns every read-modify-write of the persisted store.
type SnoozeService struct {
	gateway interfaces.GatewayInterface
	session providers.SessionProviderInterface
	tabs    host.TabHostInterface
	clock   providers.Clock
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
	locks   *keyLocks
}

func NewSnoozeService(
	gateway interfaces.GatewayInterface,
	session providers.SessionProviderInterface,
	tabs host.TabHostInterface,
	clock providers.Clock,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
) *SnoozeService {
	return &SnoozeService{
		gateway: gateway,
		session: session,
		tabs:    tabs,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
		locks:   newKeyLocks(),
	}
}

// Load runs startup recovery and writes an empty document when the store
// has none.
func (s *SnoozeService) Load(ctx context.Context) error {
	unlock := s.locks.lock(documentLock)
	defer unlock()

	values, getErr := s.gateway.Get(ctx, documentKeys...)
	if getErr != nil && !errors.Is(getErr, interfaces.ErrCorruptStore) {
		return getErr
	}
	doc, err := s.loadLocked(ctx)
	if err != nil {
		return err
	}
	if getErr == nil && len(values) == 0 {
		if err := s.persistLocked(ctx, doc); err != nil {
			return err
		}
	}
	s.metrics.SetSnoozedItems(doc.Len())
	s.logger.Infof(providers.TypeApp, "Store loaded with %d snoozed items", doc.Len())
	return nil
}

// mutate runs fn on the current document and persists the result when fn
// reports a change.
func (s *SnoozeService) mutate(ctx context.Context, fn func(doc *models.DocumentV2) (bool, error)) error {
	unlock := s.locks.lock(documentLock)
	defer unlock()

	doc, err := s.loadLocked(ctx)
	if err != nil {
		return err
	}
	changed, err := fn(&doc)
	if err != nil || !changed {
		return err
	}
	return s.persistLocked(ctx, doc)
}

func (s *SnoozeService) read(ctx context.Context) (models.DocumentV2, error) {
	unlock := s.locks.lock(documentLock)
	defer unlock()
	return s.loadLocked(ctx)
}

func (s *SnoozeService) GetSnoozedTabs(ctx context.Context) (models.Envelope, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return models.Envelope{}, err
	}
	return models.NewEnvelope(doc), nil
}

// SetSnoozedTabs replaces the whole document. Repairable input is sanitized,
// anything else is rejected without touching the store.
func (s *SnoozeService) SetSnoozedTabs(ctx context.Context, raw any) error {
	doc, result := models.ParseDocument(raw)
	if !result.Valid && !result.Repairable {
		return fmt.Errorf("%w: %s", ErrStructuralInvalid, strings.Join(result.Errors, "; "))
	}
	next := doc.ToV2()
	return s.mutate(ctx, func(current *models.DocumentV2) (bool, error) {
		*current = next
		return true, nil
	})
}

func (s *SnoozeService) ClearAll(ctx context.Context) error {
	return s.mutate(ctx, func(doc *models.DocumentV2) (bool, error) {
		*doc = models.NewDocumentV2()
		return true, nil
	})
}

// Snooze stores tab until popTime and then closes it on the host. A failed
// close is logged only.
func (s *SnoozeService) Snooze(ctx context.Context, tab models.Tab, popTime int64, groupID string) (models.SnoozedItem, error) {
	if tab.URL == "" {
		return models.SnoozedItem{}, ErrSnoozeInput
	}

	var item models.SnoozedItem
	err := s.mutate(ctx, func(doc *models.DocumentV2) (bool, error) {
		item = models.SnoozedItem{
			ID:           uuid.NewString(),
			URL:          tab.URL,
			Title:        tab.Title,
			Favicon:      tab.Favicon,
			CreationTime: models.UniqueCreationTime(*doc, s.clock.Now().UnixMilli()),
			PopTime:      popTime,
			GroupID:      groupID,
		}
		doc.Add(item)
		return true, nil
	})
	if err != nil {
		return models.SnoozedItem{}, err
	}
	s.logger.Debugf(providers.TypePost, "Snoozed %s until %s", item.URL, time.UnixMilli(popTime).UTC().Format(time.RFC3339))

	if tab.ID != "" {
		if err := s.tabs.Close(ctx, tab.ID); err != nil {
			s.logger.Warnf(providers.TypePost, "Could not close tab %s: %s", tab.ID, err)
		}
	}
	return item, nil
}

// SnoozeInterval resolves a named interval against the stored settings and
// snoozes tab until then.
func (s *SnoozeService) SnoozeInterval(ctx context.Context, tab models.Tab, interval, groupID string) (models.SnoozedItem, error) {
	if tab.URL == "" {
		return models.SnoozedItem{}, ErrSnoozeInput
	}
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return models.SnoozedItem{}, err
	}
	at, err := schedule.Resolve(interval, s.clock.Now(), settings)
	if err != nil {
		return models.SnoozedItem{}, err
	}
	return s.Snooze(ctx, tab, at.UnixMilli(), groupID)
}

// SnoozeOnDate snoozes tab until the start of the working day on the
// calendar date the user picked.
func (s *SnoozeService) SnoozeOnDate(ctx context.Context, tab models.Tab, date time.Time, groupID string) (models.SnoozedItem, error) {
	if tab.URL == "" {
		return models.SnoozedItem{}, ErrSnoozeInput
	}
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return models.SnoozedItem{}, err
	}
	at, err := schedule.AtPickedDate(date, settings)
	if err != nil {
		return models.SnoozedItem{}, err
	}
	return s.Snooze(ctx, tab, at.UnixMilli(), groupID)
}

// RemoveSnoozedTab deletes the referenced item. An unknown reference is not
// an error.
func (s *SnoozeService) RemoveSnoozedTab(ctx context.Context, ref models.ItemRef) error {
	return s.mutate(ctx, func(doc *models.DocumentV2) (bool, error) {
		item, ok := ref.Find(*doc)
		if !ok {
			return false, nil
		}
		doc.Remove(item.ID)
		return true, nil
	})
}

func groupIDs(doc models.DocumentV2, groupID string) []string {
	var ids []string
	for _, item := range doc.Ordered() {
		if item.GroupID == groupID {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

func (s *SnoozeService) RemoveWindowGroup(ctx context.Context, groupID string) error {
	return s.mutate(ctx, func(doc *models.DocumentV2) (bool, error) {
		ids := groupIDs(*doc, groupID)
		for _, id := range ids {
			doc.Remove(id)
		}
		return len(ids) > 0, nil
	})
}

// RestoreWindowGroup removes every item of the group in one write and opens
// them together in a new window.
func (s *SnoozeService) RestoreWindowGroup(ctx context.Context, groupID string) error {
	var restored []models.SnoozedItem
	err := s.mutate(ctx, func(doc *models.DocumentV2) (bool, error) {
		for _, id := range groupIDs(*doc, groupID) {
			item, _ := doc.Remove(id)
			restored = append(restored, item)
		}
		return len(restored) > 0, nil
	})
	if err != nil {
		return err
	}
	for _, item := range restored {
		if _, err := s.tabs.Open(ctx, item.URL, host.TargetNewWindow); err != nil {
			s.logger.Warnf(providers.TypePost, "Could not open %s: %s", item.URL, err)
		}
	}
	return nil
}

// ImportTabs merges a V1 or V2 export into the store. Colliding ids are
// re-keyed so every imported item is added.
func (s *SnoozeService) ImportTabs(ctx context.Context, raw any) models.ImportResult {
	doc, result := models.ParseDocument(raw)
	if !result.Valid && !result.Repairable {
		s.logger.Warnf(providers.TypePost, "Rejected import: %s", strings.Join(result.Errors, "; "))
		return models.ImportResult{Success: false, Error: importRejected}
	}
	if !result.Valid {
		s.logger.Warnf(providers.TypePost, "Repairing imported data: %s", strings.Join(result.Errors, "; "))
	}
	imported := doc.ToV2()

	var added int
	err := s.mutate(ctx, func(current *models.DocumentV2) (bool, error) {
		*current, added = models.MergeV2(*current, imported)
		return added > 0, nil
	})
	if err != nil {
		return models.ImportResult{Success: false, Error: err.Error()}
	}
	return models.ImportResult{Success: true, AddedCount: added}
}

func (s *SnoozeService) ExportTabs(ctx context.Context) (models.Envelope, error) {
	return s.GetSnoozedTabs(ctx)
}

// DueItems lists the buckets due at now and the union of their ids.
func (s *SnoozeService) DueItems(ctx context.Context, now time.Time) ([]string, []string, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, nil, err
	}
	keys := doc.Due(now.UnixMilli())
	return keys, doc.IDsIn(keys), nil
}

// PopItems removes the given items in one write and returns those that were
// still stored, in the order given.
func (s *SnoozeService) PopItems(ctx context.Context, ids []string) ([]models.SnoozedItem, error) {
	var popped []models.SnoozedItem
	err := s.mutate(ctx, func(doc *models.DocumentV2) (bool, error) {
		for _, id := range ids {
			if item, ok := doc.Remove(id); ok {
				popped = append(popped, item)
			}
		}
		return len(popped) > 0, nil
	})
	if err != nil {
		return nil, err
	}
	return popped, nil
}

// Reschedule moves the given items to popTime in one write.
func (s *SnoozeService) Reschedule(ctx context.Context, ids []string, popTime int64) (int, error) {
	moved := 0
	err := s.mutate(ctx, func(doc *models.DocumentV2) (bool, error) {
		for _, id := range ids {
			if doc.Move(id, popTime) {
				moved++
			}
		}
		return moved > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}

func (s *SnoozeService) Count(ctx context.Context) (int, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return 0, err
	}
	return doc.Len(), nil
}

// BadgeText is the item count, or empty when there is nothing snoozed or the
// badge is turned off.
func (s *SnoozeService) BadgeText(ctx context.Context) (string, error) {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return "", err
	}
	if !settings.BadgeEnabled() {
		return "", nil
	}
	n, err := s.Count(ctx)
	if err != nil || n == 0 {
		return "", err
	}
	return strconv.Itoa(n), nil
}
