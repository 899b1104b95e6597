package host

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"snoozed/internal/events"
)

var ErrNotificationNotFound = errors.New("notification not found")

type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Buttons   []string  `json:"buttons,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type ClosedListener func(ctx context.Context, id string, byUser bool)
type ButtonListener func(ctx context.Context, id string, button int)

type NotifierInterface interface {
	// Create shows n and returns its id. An empty n.ID gets a generated one.
	Create(ctx context.Context, n Notification) (string, error)
	GetAllActive(ctx context.Context) ([]Notification, error)
	// Clear hides the notification without raising OnClosed.
	Clear(ctx context.Context, id string) (bool, error)
	OnClosed(listener ClosedListener) func()
	OnButtonClicked(listener ButtonListener) func()
}

// InboxNotifier keeps active notifications in memory until a client
// responds to them over HTTP.
type InboxNotifier struct {
	mu      sync.Mutex
	active  map[string]Notification
	now     func() time.Time
	closed  *events.Registry[ClosedListener]
	clicked *events.Registry[ButtonListener]
}

func NewInboxNotifier() *InboxNotifier {
	return &InboxNotifier{
		active:  make(map[string]Notification),
		now:     time.Now,
		closed:  events.NewRegistry[ClosedListener](),
		clicked: events.NewRegistry[ButtonListener](),
	}
}

func (n *InboxNotifier) Create(_ context.Context, notification Notification) (string, error) {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = n.now()
	}
	n.mu.Lock()
	n.active[notification.ID] = notification
	n.mu.Unlock()
	return notification.ID, nil
}

// GetAllActive returns notifications oldest first.
func (n *InboxNotifier) GetAllActive(_ context.Context) ([]Notification, error) {
	n.mu.Lock()
	out := make([]Notification, 0, len(n.active))
	for _, notification := range n.active {
		out = append(out, notification)
	}
	n.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (n *InboxNotifier) Clear(_ context.Context, id string) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.active[id]; !ok {
		return false, nil
	}
	delete(n.active, id)
	return true, nil
}

func (n *InboxNotifier) OnClosed(listener ClosedListener) func() {
	return n.closed.Subscribe(listener)
}

func (n *InboxNotifier) OnButtonClicked(listener ButtonListener) func() {
	return n.clicked.Subscribe(listener)
}

// Respond records a user reaction. A nil button means the notification was
// dismissed, which removes it. A button click leaves it active until a
// listener clears it.
func (n *InboxNotifier) Respond(ctx context.Context, id string, button *int) error {
	n.mu.Lock()
	_, ok := n.active[id]
	if ok && button == nil {
		delete(n.active, id)
	}
	n.mu.Unlock()
	if !ok {
		return ErrNotificationNotFound
	}

	if button == nil {
		n.closed.Emit(func(fn ClosedListener) { fn(ctx, id, true) })
		return nil
	}
	index := *button
	n.clicked.Emit(func(fn ButtonListener) { fn(ctx, id, index) })
	return nil
}
