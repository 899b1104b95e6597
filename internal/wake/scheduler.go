package wake

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/roylee0704/gron"
	"go.uber.org/atomic"

	"snoozed/internal/host"
	"snoozed/internal/models"
	"snoozed/internal/providers"
	"snoozed/internal/schedule"
	"snoozed/internal/services"
	"snoozed/internal/structures"
	"snoozed/internal/wake/interfaces"
)

const (
	ButtonOpen     = 0
	ButtonPostpone = 1

	RecoveryNotificationID = "recovery-notification"
	pendingPrefix          = "pendingNotification:"
)

// Labels for the scan and response counters.
const (
	scanSkipped  = "skipped"
	scanEmpty    = "empty"
	scanNotified = "notified"
	scanError    = "error"

	responseOpen     = "open"
	responsePostpone = "postpone"
	responseClosed   = "closed"
)

func PendingKey(notificationID string) string {
	return pendingPrefix + notificationID
}

// Scheduler is the wake state machine: a periodic scan announces due items
// in one notification, and the user's response either opens or postpones
// them.
type Scheduler struct {
	config   *structures.Config
	logger   providers.Logger
	service  services.SnoozeServiceInterface
	notifier host.NotifierInterface
	tabs     host.TabHostInterface
	session  providers.SessionProviderInterface
	clock    providers.Clock
	metrics  providers.MetricsProviderInterface

	cron    *gron.Cron
	startup *time.Timer
	cancels []func()
	opsMu   sync.Mutex
	state   atomic.Int32
}

func NewScheduler(
	config *structures.Config,
	logger providers.Logger,
	service services.SnoozeServiceInterface,
	notifier host.NotifierInterface,
	tabs host.TabHostInterface,
	session providers.SessionProviderInterface,
	clock providers.Clock,
	metrics providers.MetricsProviderInterface,
) *Scheduler {
	return &Scheduler{
		config:   config,
		logger:   logger,
		service:  service,
		notifier: notifier,
		tabs:     tabs,
		session:  session,
		clock:    clock,
		metrics:  metrics,
	}
}

var _ interfaces.SchedulerInterface = (*Scheduler)(nil)

func (s *Scheduler) Init() {
	s.cancels = append(s.cancels,
		s.notifier.OnButtonClicked(s.HandleButton),
		s.notifier.OnClosed(s.HandleClosed),
	)

	s.cron = gron.New()
	s.cron.AddFunc(gron.Every(s.config.Wake.Interval), func() {
		s.run(context.Background())
	})
	s.cron.Start()

	s.startup = time.AfterFunc(s.config.Wake.StartupDelay, func() {
		s.run(context.Background())
	})
	s.logger.Infof(providers.TypeWake, "Wake scheduler started, scanning every %s", s.config.Wake.Interval)
}

func (s *Scheduler) run(ctx context.Context) {
	s.CheckRecovery(ctx)
	if _, err := s.Tick(ctx); err != nil {
		s.logger.Errorf(providers.TypeWake, "Wake scan failed: %s", err)
	}
}

func (s *Scheduler) Stop() {
	if s.startup != nil {
		s.startup.Stop()
	}
	if s.cron != nil {
		s.cron.Stop()
	}
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
}

func (s *Scheduler) State() models.WakeState {
	return models.WakeState(s.state.Load())
}

func (s *Scheduler) setState(state models.WakeState) {
	s.state.Store(int32(state))
}

// Tick scans for due items and announces them. It does nothing while any
// notification is still active.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	previous := s.State()
	active, err := s.notifier.GetAllActive(ctx)
	if err != nil {
		s.logger.Warnf(providers.TypeWake, "Unable to list notifications: %s", err)
	}
	if len(active) > 0 {
		s.metrics.IncWakeScans(scanSkipped)
		s.logger.Debugf(providers.TypeWake, "%d notifications active, skipping scan", len(active))
		return 0, nil
	}

	s.setState(models.StateScanning)
	now := s.clock.Now()
	keys, ids, err := s.service.DueItems(ctx, now)
	if err != nil {
		s.setState(previous)
		s.metrics.IncWakeScans(scanError)
		return 0, err
	}
	if len(ids) == 0 {
		s.setState(models.StateIdle)
		s.metrics.IncWakeScans(scanEmpty)
		return 0, nil
	}

	id := uuid.NewString()
	batch, err := s.recordPending(id, keys, ids, now)
	if err != nil {
		s.setState(models.StateIdle)
		s.metrics.IncWakeScans(scanError)
		return 0, fmt.Errorf("failed to record pending notification: %w", err)
	}
	if batch < len(ids) {
		s.logger.Warnf(providers.TypeWake, "Announcing %d of %d due items, the rest waits for the next scan", batch, len(ids))
	}

	if _, err := s.notifier.Create(ctx, host.Notification{
		ID:      id,
		Title:   "Tab Snooze",
		Message: backMessage(batch),
		Buttons: []string{"Open now", "Postpone"},
	}); err != nil {
		s.session.Remove(PendingKey(id))
		s.setState(models.StateIdle)
		s.metrics.IncWakeScans(scanError)
		return 0, fmt.Errorf("failed to create notification: %w", err)
	}

	s.setState(models.StateNotificationPending)
	s.metrics.IncWakeScans(scanNotified)
	s.logger.Infof(providers.TypeWake, "Announced %d due items from %d buckets (notification %s)", batch, len(keys), id)
	return batch, nil
}

// recordPending stores the pending record for id and returns how many of
// ids it holds. A record too large for one session entry is halved until it
// fits; the items left out stay due. Bucket keys are only kept for a full
// batch.
func (s *Scheduler) recordPending(id string, keys, ids []string, now time.Time) (int, error) {
	n := len(ids)
	for {
		pending := models.PendingNotification{
			NotificationID: id,
			IDs:            ids[:n],
			CreatedAt:      now.UnixMilli(),
		}
		if n == len(ids) {
			pending.BucketKeys = keys
		}
		data, err := json.Marshal(pending)
		if err != nil {
			return 0, err
		}
		err = s.session.Set(PendingKey(id), data)
		if err == nil {
			return n, nil
		}
		if !errors.Is(err, providers.ErrSessionEntryTooLarge) || n == 1 {
			return 0, err
		}
		n /= 2
	}
}

func backMessage(n int) string {
	if n == 1 {
		return "1 tab is back"
	}
	return strconv.Itoa(n) + " tabs are back"
}

func (s *Scheduler) loadPending(id string) (models.PendingNotification, bool) {
	var pending models.PendingNotification
	data, ok := s.session.Get(PendingKey(id))
	if !ok {
		return pending, false
	}
	if err := json.Unmarshal(data, &pending); err != nil {
		s.logger.Warnf(providers.TypeWake, "Dropping unreadable pending notification %s: %s", id, err)
		s.session.Remove(PendingKey(id))
		return pending, false
	}
	return pending, true
}

// HandleButton reacts to a button press on a notification.
func (s *Scheduler) HandleButton(ctx context.Context, id string, button int) {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	pending, ok := s.loadPending(id)
	if !ok {
		// recovery notice or a notification whose record was lost
		_, _ = s.notifier.Clear(ctx, id)
		return
	}

	var err error
	switch button {
	case ButtonOpen:
		err = s.open(ctx, pending)
	case ButtonPostpone:
		err = s.postpone(ctx, pending, responsePostpone)
	default:
		s.logger.Warnf(providers.TypeWake, "Ignoring unknown button %d on notification %s", button, id)
		return
	}
	if err != nil {
		s.logger.Errorf(providers.TypeWake, "Unable to resolve notification %s: %s", id, err)
	}
}

// HandleClosed treats a dismissed notification like a postpone.
func (s *Scheduler) HandleClosed(ctx context.Context, id string, byUser bool) {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	pending, ok := s.loadPending(id)
	if !ok {
		return
	}
	s.logger.Debugf(providers.TypeWake, "Notification %s closed (byUser=%t)", id, byUser)
	if err := s.postpone(ctx, pending, responseClosed); err != nil {
		s.logger.Errorf(providers.TypeWake, "Unable to resolve notification %s: %s", id, err)
	}
}

// open removes the announced items in one write and then opens them. Open
// failures do not bring the items back.
func (s *Scheduler) open(ctx context.Context, pending models.PendingNotification) error {
	settings, err := s.service.GetSettings(ctx)
	if err != nil {
		return err
	}
	popped, err := s.service.PopItems(ctx, pending.IDs)
	if err != nil {
		return err
	}
	s.setState(models.StateResolved)

	target := host.TargetNewWindow
	if settings.OpensInCurrentWindow() {
		target = host.TargetCurrentWindow
	}
	for _, item := range popped {
		if _, err := s.tabs.Open(ctx, item.URL, target); err != nil {
			s.logger.Warnf(providers.TypeWake, "Could not open %s: %s", item.URL, err)
		}
	}
	s.resolve(ctx, pending.NotificationID, responseOpen)
	s.logger.Infof(providers.TypeWake, "Opened %d woken items", len(popped))
	return nil
}

func (s *Scheduler) postpone(ctx context.Context, pending models.PendingNotification, response string) error {
	at := schedule.Postpone(s.clock.Now())
	moved, err := s.service.Reschedule(ctx, pending.IDs, at.UnixMilli())
	if err != nil {
		return err
	}
	s.setState(models.StateResolved)
	s.resolve(ctx, pending.NotificationID, response)
	s.logger.Infof(providers.TypeWake, "Postponed %d items until %s", moved, at.Format(time.RFC3339))
	return nil
}

func (s *Scheduler) resolve(ctx context.Context, id, response string) {
	s.session.Remove(PendingKey(id))
	if _, err := s.notifier.Clear(ctx, id); err != nil {
		s.logger.Warnf(providers.TypeWake, "Unable to clear notification %s: %s", id, err)
	}
	s.metrics.IncNotifications(response)
	s.setState(models.StateIdle)
}

// CheckRecovery shows the one-shot notice after a store reset unless one was
// shown within the cooldown. The flag is cleared either way.
func (s *Scheduler) CheckRecovery(ctx context.Context) {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	raw, ok := s.session.Get(services.SessionPendingRecovery)
	if !ok {
		return
	}
	lost, _ := strconv.Atoi(string(raw))
	now := s.clock.Now()

	show := true
	if last, ok := s.session.Get(services.SessionLastRecoveryNotified); ok {
		if ms, err := strconv.ParseInt(string(last), 10, 64); err == nil {
			show = now.Sub(time.UnixMilli(ms)) > s.config.Wake.RecoveryCooldown
		}
	}

	if show {
		_, err := s.notifier.Create(ctx, host.Notification{
			ID:      RecoveryNotificationID,
			Title:   "Snoozed Data Recovered",
			Message: recoveryMessage(lost),
		})
		if err != nil {
			s.logger.Warnf(providers.TypeWake, "Recovery notification failed: %s", err)
		} else if err := s.session.Set(services.SessionLastRecoveryNotified, []byte(strconv.FormatInt(now.UnixMilli(), 10))); err != nil {
			s.logger.Warnf(providers.TypeWake, "Unable to record recovery notice time: %s", err)
		}
	}
	s.session.Remove(services.SessionPendingRecovery)
}

func recoveryMessage(lost int) string {
	switch {
	case lost == 1:
		return "Snoozed data was reset due to corruption. 1 snoozed tab was lost."
	case lost > 1:
		return fmt.Sprintf("Snoozed data was reset due to corruption. %d snoozed tabs were lost.", lost)
	}
	return "Snoozed data was reset due to corruption."
}
