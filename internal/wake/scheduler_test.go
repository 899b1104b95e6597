package wake

import (
	"context"
	"strconv"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snoozed/internal/host"
	"snoozed/internal/models"
	"snoozed/internal/providers"
	"snoozed/internal/services"
	"snoozed/internal/structures"
	"snoozed/internal/testutil"
)

var testNow = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	scheduler *Scheduler
	service   *services.SnoozeService
	gateway   *testutil.MemoryGateway
	notifier  *testutil.FakeNotifier
	tabs      *testutil.FakeTabHost
	session   *testutil.MockSession
	clock     *testutil.FixedClock
	logger    *testutil.MockLogger
	metrics   *testutil.MockMetrics
}

func testConfig() *structures.Config {
	return &structures.Config{
		Wake: structures.WakeConfig{
			Interval:         time.Hour,
			StartupDelay:     time.Hour,
			RecoveryCooldown: 5 * time.Minute,
		},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		gateway:  testutil.NewMemoryGateway(),
		notifier: testutil.NewFakeNotifier(),
		tabs:     &testutil.FakeTabHost{},
		session:  testutil.NewMockSession(),
		clock:    testutil.NewFixedClock(testNow),
		logger:   &testutil.MockLogger{},
		metrics:  testutil.NewMockMetrics(),
	}
	f.service = services.NewSnoozeService(f.gateway, f.session, f.tabs, f.clock, f.logger, f.metrics)
	f.scheduler = NewScheduler(testConfig(), f.logger, f.service, f.notifier, f.tabs, f.session, f.clock, f.metrics)
	return f
}

func (f *fixture) snooze(t *testing.T, url string, at time.Time) models.SnoozedItem {
	t.Helper()
	item, err := f.service.Snooze(context.Background(), models.Tab{URL: url}, at.UnixMilli(), "")
	require.NoError(t, err)
	return item
}

func (f *fixture) active(t *testing.T) []host.Notification {
	t.Helper()
	active, err := f.notifier.GetAllActive(context.Background())
	require.NoError(t, err)
	return active
}

func (f *fixture) pending(t *testing.T, id string) (models.PendingNotification, bool) {
	t.Helper()
	var p models.PendingNotification
	data, ok := f.session.Get(PendingKey(id))
	if !ok {
		return p, false
	}
	require.NoError(t, json.Unmarshal(data, &p))
	return p, true
}

func TestTick_NothingDue(t *testing.T) {
	f := newFixture(t)
	f.snooze(t, "https://later.example", testNow.Add(time.Hour))

	n, err := f.scheduler.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, f.active(t))
	assert.Equal(t, models.StateIdle, f.scheduler.State())
	assert.Equal(t, 1, f.metrics.WakeScanCount(scanEmpty))
}

func TestTick_AnnouncesAllDueBucketsOnce(t *testing.T) {
	f := newFixture(t)
	a := f.snooze(t, "https://a.example", testNow.Add(-2*time.Hour))
	b := f.snooze(t, "https://b.example", testNow)
	f.snooze(t, "https://c.example", testNow.Add(time.Minute))

	n, err := f.scheduler.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, models.StateNotificationPending, f.scheduler.State())

	active := f.active(t)
	require.Len(t, active, 1)
	assert.Equal(t, "2 tabs are back", active[0].Message)
	assert.Equal(t, []string{"Open now", "Postpone"}, active[0].Buttons)

	pending, ok := f.pending(t, active[0].ID)
	require.True(t, ok)
	assert.Equal(t, []string{a.ID, b.ID}, pending.IDs)
	assert.Equal(t, []string{models.BucketKey(a.PopTime), models.BucketKey(b.PopTime)}, pending.BucketKeys)

	// items stay scheduled until a response
	count, _ := f.service.Count(context.Background())
	assert.Equal(t, 3, count)
}

func TestTick_SkipsWhileNotificationActive(t *testing.T) {
	f := newFixture(t)
	f.snooze(t, "https://a.example", testNow.Add(-time.Minute))

	_, err := f.scheduler.Tick(context.Background())
	require.NoError(t, err)
	n, err := f.scheduler.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, f.active(t), 1)
	assert.Equal(t, 1, f.metrics.WakeScanCount(scanSkipped))
}

func TestTick_SingleItemMessage(t *testing.T) {
	f := newFixture(t)
	f.snooze(t, "https://a.example", testNow.Add(-time.Minute))
	_, err := f.scheduler.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1 tab is back", f.active(t)[0].Message)
}

func TestTick_NotificationFailureKeepsItems(t *testing.T) {
	f := newFixture(t)
	f.snooze(t, "https://a.example", testNow.Add(-time.Minute))
	f.notifier.CreateErr = testutil.ErrInjected

	_, err := f.scheduler.Tick(context.Background())
	assert.ErrorIs(t, err, testutil.ErrInjected)
	assert.Equal(t, models.StateIdle, f.scheduler.State())
	count, _ := f.service.Count(context.Background())
	assert.Equal(t, 1, count)
}

func TestTick_SessionFailureShowsNothing(t *testing.T) {
	f := newFixture(t)
	f.snooze(t, "https://a.example", testNow.Add(-time.Minute))
	f.session.SetErr = testutil.ErrInjected

	_, err := f.scheduler.Tick(context.Background())
	assert.ErrorIs(t, err, testutil.ErrInjected)
	assert.Empty(t, f.active(t))
	assert.Equal(t, models.StateIdle, f.scheduler.State())
}

func TestTick_OversizedBatchIsSplitAcrossScans(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 40; i++ {
		f.snooze(t, "https://example.com/"+strconv.Itoa(i), testNow.Add(-time.Minute))
	}
	f.session.MaxEntry = 1024

	first, err := f.scheduler.Tick(context.Background())
	require.NoError(t, err)
	assert.Greater(t, first, 0)
	assert.Less(t, first, 40)
	active := f.active(t)
	require.Len(t, active, 1)
	assert.Equal(t, backMessage(first), active[0].Message)
	pending, ok := f.pending(t, active[0].ID)
	require.True(t, ok)
	assert.Len(t, pending.IDs, first)
	assert.True(t, f.logger.Has("warn"))

	f.scheduler.HandleButton(context.Background(), active[0].ID, ButtonOpen)
	assert.Len(t, f.tabs.OpenedURLs(), first)

	second, err := f.scheduler.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 40-first, second)
	f.scheduler.HandleButton(context.Background(), f.active(t)[0].ID, ButtonOpen)

	assert.Len(t, f.tabs.OpenedURLs(), 40)
	count, err := f.service.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTick_SingleItemTooLargeFails(t *testing.T) {
	f := newFixture(t)
	f.snooze(t, "https://a.example", testNow.Add(-time.Minute))
	f.session.MaxEntry = 10

	_, err := f.scheduler.Tick(context.Background())
	assert.ErrorIs(t, err, providers.ErrSessionEntryTooLarge)
	assert.Empty(t, f.active(t))
}

func TestTick_StoreReadFailure(t *testing.T) {
	f := newFixture(t)
	f.gateway.GetErr = testutil.ErrInjected

	_, err := f.scheduler.Tick(context.Background())
	assert.ErrorIs(t, err, testutil.ErrInjected)
	assert.Equal(t, 1, f.metrics.WakeScanCount(scanError))
}

func announce(t *testing.T, f *fixture) string {
	t.Helper()
	_, err := f.scheduler.Tick(context.Background())
	require.NoError(t, err)
	active := f.active(t)
	require.Len(t, active, 1)
	return active[0].ID
}

func TestHandleButton_OpenNow(t *testing.T) {
	f := newFixture(t)
	f.snooze(t, "https://a.example", testNow.Add(-time.Hour))
	f.snooze(t, "https://b.example", testNow.Add(-time.Minute))
	f.snooze(t, "https://c.example", testNow.Add(time.Hour))
	id := announce(t, f)

	f.scheduler.HandleButton(context.Background(), id, ButtonOpen)

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, f.tabs.OpenedURLs())
	for _, call := range f.tabs.Opened {
		assert.Equal(t, host.TargetCurrentWindow, call.Target)
	}
	count, _ := f.service.Count(context.Background())
	assert.Equal(t, 1, count)
	assert.Empty(t, f.active(t))
	_, ok := f.pending(t, id)
	assert.False(t, ok)
	assert.Equal(t, models.StateIdle, f.scheduler.State())
	assert.Equal(t, 1, f.metrics.NotificationCount(responseOpen))
}

func TestHandleButton_OpenNowInNewWindow(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.service.SetSettings(context.Background(), map[string]any{models.SettingOpenNewTab: "false"}))
	f.snooze(t, "https://a.example", testNow.Add(-time.Hour))
	id := announce(t, f)

	f.scheduler.HandleButton(context.Background(), id, ButtonOpen)
	require.Len(t, f.tabs.Opened, 1)
	assert.Equal(t, host.TargetNewWindow, f.tabs.Opened[0].Target)
}

func TestHandleButton_OpenFailureStillRemoves(t *testing.T) {
	f := newFixture(t)
	f.snooze(t, "https://a.example", testNow.Add(-time.Hour))
	id := announce(t, f)
	f.tabs.OpenErr = testutil.ErrInjected

	f.scheduler.HandleButton(context.Background(), id, ButtonOpen)
	count, _ := f.service.Count(context.Background())
	assert.Equal(t, 0, count)
	assert.True(t, f.logger.Has("warn"))
}

func TestHandleButton_Postpone(t *testing.T) {
	f := newFixture(t)
	a := f.snooze(t, "https://a.example", testNow.Add(-time.Hour))
	id := announce(t, f)

	f.scheduler.HandleButton(context.Background(), id, ButtonPostpone)

	env, err := f.service.GetSnoozedTabs(context.Background())
	require.NoError(t, err)
	want := testNow.Add(time.Hour).UnixMilli()
	assert.Equal(t, want, env.Items[a.ID].PopTime)
	assert.Equal(t, []string{a.ID}, env.Schedule[models.BucketKey(want)])
	assert.Empty(t, f.tabs.Opened)
	assert.Empty(t, f.active(t))
	assert.Equal(t, 1, f.metrics.NotificationCount(responsePostpone))
}

func TestHandleButton_StoreFailureKeepsPending(t *testing.T) {
	f := newFixture(t)
	f.snooze(t, "https://a.example", testNow.Add(-time.Hour))
	id := announce(t, f)
	f.gateway.SetErr = testutil.ErrInjected

	f.scheduler.HandleButton(context.Background(), id, ButtonPostpone)
	_, ok := f.pending(t, id)
	assert.True(t, ok)
	assert.Len(t, f.active(t), 1)
	assert.Equal(t, models.StateNotificationPending, f.scheduler.State())
	assert.True(t, f.logger.Has("error"))
}

func TestHandleButton_UnknownNotificationIsCleared(t *testing.T) {
	f := newFixture(t)
	id, err := f.notifier.Create(context.Background(), host.Notification{Title: "stale"})
	require.NoError(t, err)

	f.scheduler.HandleButton(context.Background(), id, ButtonOpen)
	assert.Empty(t, f.active(t))
	assert.Equal(t, 0, f.gateway.Writes)
}

func TestRespond_DismissPostponesThroughListeners(t *testing.T) {
	f := newFixture(t)
	f.scheduler.Init()
	defer f.scheduler.Stop()

	a := f.snooze(t, "https://a.example", testNow.Add(-time.Hour))
	id := announce(t, f)

	require.NoError(t, f.notifier.Respond(context.Background(), id, nil))

	env, err := f.service.GetSnoozedTabs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(time.Hour).UnixMilli(), env.Items[a.ID].PopTime)
	assert.Equal(t, 1, f.metrics.NotificationCount(responseClosed))
	_, ok := f.pending(t, id)
	assert.False(t, ok)
}

func TestRespond_OpenThroughListeners(t *testing.T) {
	f := newFixture(t)
	f.scheduler.Init()
	defer f.scheduler.Stop()

	f.snooze(t, "https://a.example", testNow.Add(-time.Hour))
	id := announce(t, f)

	button := ButtonOpen
	require.NoError(t, f.notifier.Respond(context.Background(), id, &button))
	assert.Equal(t, []string{"https://a.example"}, f.tabs.OpenedURLs())
	assert.Empty(t, f.active(t))
}

func TestStopCancelsListeners(t *testing.T) {
	f := newFixture(t)
	f.scheduler.Init()
	f.snooze(t, "https://a.example", testNow.Add(-time.Hour))
	id := announce(t, f)
	f.scheduler.Stop()

	button := ButtonOpen
	require.NoError(t, f.notifier.Respond(context.Background(), id, &button))
	assert.Empty(t, f.tabs.Opened)
}

func TestInit_StartupScan(t *testing.T) {
	f := newFixture(t)
	conf := testConfig()
	conf.Wake.StartupDelay = 10 * time.Millisecond
	f.scheduler.config = conf
	f.snooze(t, "https://a.example", testNow.Add(-time.Hour))

	f.scheduler.Init()
	defer f.scheduler.Stop()

	assert.Eventually(t, func() bool {
		return f.scheduler.State() == models.StateNotificationPending
	}, time.Second, 5*time.Millisecond)
}

func TestCheckRecovery_ShowsNoticeOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.session.Set(services.SessionPendingRecovery, []byte("3")))

	f.scheduler.CheckRecovery(ctx)
	active := f.active(t)
	require.Len(t, active, 1)
	assert.Equal(t, RecoveryNotificationID, active[0].ID)
	assert.Contains(t, active[0].Message, "Snoozed data was reset due to corruption")
	assert.Contains(t, active[0].Message, "3 snoozed tabs were lost")

	_, pending := f.session.Get(services.SessionPendingRecovery)
	assert.False(t, pending)
	last, ok := f.session.Get(services.SessionLastRecoveryNotified)
	require.True(t, ok)
	assert.Equal(t, strconv.FormatInt(testNow.UnixMilli(), 10), string(last))

	f.scheduler.CheckRecovery(ctx)
	assert.Len(t, f.active(t), 1)
}

func TestCheckRecovery_CooldownSuppressesNotice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.session.Set(services.SessionLastRecoveryNotified, []byte(strconv.FormatInt(testNow.Add(-time.Minute).UnixMilli(), 10))))
	require.NoError(t, f.session.Set(services.SessionPendingRecovery, []byte("0")))

	f.scheduler.CheckRecovery(ctx)
	assert.Empty(t, f.active(t))
	_, pending := f.session.Get(services.SessionPendingRecovery)
	assert.False(t, pending)

	f.clock.Advance(10 * time.Minute)
	require.NoError(t, f.session.Set(services.SessionPendingRecovery, []byte("0")))
	f.scheduler.CheckRecovery(ctx)
	active := f.active(t)
	require.Len(t, active, 1)
	assert.Equal(t, "Snoozed data was reset due to corruption.", active[0].Message)
}

func TestRecoveryAfterCorruptStore(t *testing.T) {
	f := newFixture(t)
	f.gateway.Seed(map[string]string{
		models.KeySnoozedTabs: `{"tabCount": 1, "1704880800000": "oops"}`,
	})
	require.NoError(t, f.service.Load(context.Background()))

	f.scheduler.CheckRecovery(context.Background())
	active := f.active(t)
	require.Len(t, active, 1)
	assert.Equal(t, "Snoozed data was reset due to corruption. 1 snoozed tab was lost.", active[0].Message)
}
