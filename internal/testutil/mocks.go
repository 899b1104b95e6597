package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"snoozed/internal/events"
	"snoozed/internal/host"
	"snoozed/internal/providers"
	"snoozed/internal/storage/interfaces"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (e LogEntry) Message() string {
	return fmt.Sprintf(e.Format, e.Args...)
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Has reports whether anything was logged at level.
func (m *MockLogger) Has(level string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Logs {
		if e.Level == level {
			return true
		}
	}
	return false
}

// MockMetrics implements providers.MetricsProviderInterface.
type MockMetrics struct {
	mu            sync.Mutex
	Requests      map[string]int
	CacheHits     int
	CacheMisses   int
	persistence   int
	SnoozedItems  int
	WakeScans     map[string]int
	Notifications map[string]int
	Repairs       map[string]int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		Requests:      make(map[string]int),
		WakeScans:     make(map[string]int),
		Notifications: make(map[string]int),
		Repairs:       make(map[string]int),
	}
}

func (m *MockMetrics) init() {
	if m.Requests == nil {
		m.Requests = make(map[string]int)
		m.WakeScans = make(map[string]int)
		m.Notifications = make(map[string]int)
		m.Repairs = make(map[string]int)
	}
}

func (m *MockMetrics) IncRequestsTotal(endpoint string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	m.Requests[fmt.Sprintf("%s %d", endpoint, status)]++
}

func (m *MockMetrics) ObserveRequestDuration(string, time.Duration) {}

func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}

func (m *MockMetrics) ObservePersistenceDuration(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persistence++
}

func (m *MockMetrics) PersistenceCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persistence
}

func (m *MockMetrics) SetSnoozedItems(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SnoozedItems = count
}

func (m *MockMetrics) IncWakeScans(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	m.WakeScans[result]++
}

func (m *MockMetrics) IncNotifications(response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	m.Notifications[response]++
}

func (m *MockMetrics) IncStoreRepairs(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	m.Repairs[kind]++
}

func (m *MockMetrics) WakeScanCount(result string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.WakeScans[result]
}

func (m *MockMetrics) NotificationCount(response string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Notifications[response]
}

func (m *MockMetrics) RepairCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Repairs[kind]
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

func (m *MockCache) Del(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Data, key)
}

// MockSession implements providers.SessionProviderInterface.
type MockSession struct {
	mu     sync.Mutex
	Data   map[string][]byte
	SetErr error
	// MaxEntry rejects larger values like the freecache entry limit when set.
	MaxEntry int
}

func NewMockSession() *MockSession {
	return &MockSession{Data: make(map[string][]byte)}
}

func (m *MockSession) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockSession) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	if m.MaxEntry > 0 && len(value) > m.MaxEntry {
		return fmt.Errorf("%w: %s", providers.ErrSessionEntryTooLarge, key)
	}
	m.Data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MockSession) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Data, key)
}

// MockCompressor implements interfaces.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
	Closed       bool
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Close() {
	m.Closed = true
}

var ErrInjected = errors.New("injected failure")

// MemoryGateway implements interfaces.GatewayInterface in memory.
type MemoryGateway struct {
	mu        sync.Mutex
	data      map[string][]byte
	listeners *events.Registry[interfaces.ChangeListener]

	// GetErr, SetErr and RemoveErr are returned by the matching call when set.
	GetErr    error
	SetErr    error
	RemoveErr error
	Writes    int
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		data:      make(map[string][]byte),
		listeners: events.NewRegistry[interfaces.ChangeListener](),
	}
}

// Seed stores raw values without notifying listeners.
func (g *MemoryGateway) Seed(values map[string]string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for k, v := range values {
		g.data[k] = []byte(v)
	}
}

// Raw returns the stored value of key.
func (g *MemoryGateway) Raw(key string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	val, ok := g.data[key]
	return string(val), ok
}

func (g *MemoryGateway) Get(_ context.Context, keys ...string) (map[string][]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.GetErr != nil {
		return nil, g.GetErr
	}
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := g.data[k]; ok {
			out[k] = append([]byte(nil), v...)
		}
	}
	return out, nil
}

func (g *MemoryGateway) Set(_ context.Context, values map[string][]byte) error {
	g.mu.Lock()
	if g.SetErr != nil {
		g.mu.Unlock()
		return g.SetErr
	}
	keys := make([]string, 0, len(values))
	for k, v := range values {
		g.data[k] = append([]byte(nil), v...)
		keys = append(keys, k)
	}
	g.Writes++
	g.mu.Unlock()

	sort.Strings(keys)
	g.listeners.Emit(func(fn interfaces.ChangeListener) { fn(keys) })
	return nil
}

func (g *MemoryGateway) Remove(_ context.Context, keys ...string) error {
	g.mu.Lock()
	if g.RemoveErr != nil {
		g.mu.Unlock()
		return g.RemoveErr
	}
	var removed []string
	for _, k := range keys {
		if _, ok := g.data[k]; ok {
			delete(g.data, k)
			removed = append(removed, k)
		}
	}
	g.mu.Unlock()

	if len(removed) > 0 {
		g.listeners.Emit(func(fn interfaces.ChangeListener) { fn(removed) })
	}
	return nil
}

func (g *MemoryGateway) OnChange(listener interfaces.ChangeListener) func() {
	return g.listeners.Subscribe(listener)
}

func (g *MemoryGateway) Close() error { return nil }

// FixedClock implements providers.Clock.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFixedClock(now time.Time) *FixedClock {
	return &FixedClock{now: now}
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FixedClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type OpenCall struct {
	URL    string
	Target host.Target
}

// FakeTabHost implements host.TabHostInterface.
type FakeTabHost struct {
	mu      sync.Mutex
	Opened  []OpenCall
	Closed  []string
	OpenErr error
}

func (h *FakeTabHost) Open(_ context.Context, url string, target host.Target) (host.Tab, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.OpenErr != nil {
		return host.Tab{}, h.OpenErr
	}
	h.Opened = append(h.Opened, OpenCall{URL: url, Target: target})
	return host.Tab{ID: fmt.Sprintf("tab-%d", len(h.Opened)), URL: url, Target: target}, nil
}

func (h *FakeTabHost) Close(_ context.Context, ref string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Closed = append(h.Closed, ref)
	return nil
}

func (h *FakeTabHost) Query(context.Context, host.TabFilter) ([]host.Tab, error) {
	return nil, nil
}

func (h *FakeTabHost) OpenedURLs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.Opened))
	for i, c := range h.Opened {
		out[i] = c.URL
	}
	return out
}

// FakeNotifier wraps an InboxNotifier and can fail Create.
type FakeNotifier struct {
	*host.InboxNotifier
	CreateErr error
}

func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{InboxNotifier: host.NewInboxNotifier()}
}

func (n *FakeNotifier) Create(ctx context.Context, notification host.Notification) (string, error) {
	if n.CreateErr != nil {
		return "", n.CreateErr
	}
	return n.InboxNotifier.Create(ctx, notification)
}
