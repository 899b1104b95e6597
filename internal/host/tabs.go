package host

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"

	"github.com/google/uuid"

	"snoozed/internal/providers"
	"snoozed/internal/structures"
)

var ErrTabNotFound = errors.New("tab not found")

type Target int

const (
	TargetCurrentWindow Target = iota
	TargetNewWindow
)

func (t Target) String() string {
	if t == TargetNewWindow {
		return "new-window"
	}
	return "current-window"
}

type Tab struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Target Target `json:"target"`
}

type TabFilter struct {
	URL string
}

type TabHostInterface interface {
	Open(ctx context.Context, url string, target Target) (Tab, error)
	// Close accepts a tab id or url.
	Close(ctx context.Context, ref string) error
	Query(ctx context.Context, filter TabFilter) ([]Tab, error)
}

type runFunc func(ctx context.Context, name string, args ...string) error

// CommandTabHost opens pages by running a configured command such as
// xdg-open or a browser binary, and remembers what it opened.
type CommandTabHost struct {
	mu     sync.Mutex
	conf   structures.HostConfig
	logger providers.Logger
	run    runFunc
	tabs   map[string]Tab
	order  []string
}

func NewCommandTabHost(conf *structures.Config, logger providers.Logger) *CommandTabHost {
	return &CommandTabHost{
		conf:   conf.Host,
		logger: logger,
		run:    runCommand,
		tabs:   make(map[string]Tab),
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, out)
	}
	return nil
}

func (h *CommandTabHost) Open(ctx context.Context, url string, target Target) (Tab, error) {
	if url == "" {
		return Tab{}, errors.New("cannot open an empty url")
	}
	if h.conf.Opener != "" {
		args := append([]string(nil), h.conf.Args...)
		if target == TargetNewWindow && h.conf.WindowArg != "" {
			args = append(args, h.conf.WindowArg)
		}
		args = append(args, url)
		if err := h.run(ctx, h.conf.Opener, args...); err != nil {
			return Tab{}, err
		}
	}
	h.logger.Debugf(providers.TypeWake, "Opened %s in %s", url, target)

	tab := Tab{ID: uuid.NewString(), URL: url, Target: target}
	h.mu.Lock()
	h.tabs[tab.ID] = tab
	h.order = append(h.order, tab.ID)
	h.mu.Unlock()
	return tab, nil
}

func (h *CommandTabHost) Close(_ context.Context, ref string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, id := range h.order {
		tab := h.tabs[id]
		if tab.ID == ref || tab.URL == ref {
			delete(h.tabs, id)
			h.order = append(h.order[:i], h.order[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrTabNotFound, ref)
}

func (h *CommandTabHost) Query(_ context.Context, filter TabFilter) ([]Tab, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Tab
	for _, id := range h.order {
		tab := h.tabs[id]
		if filter.URL != "" && tab.URL != filter.URL {
			continue
		}
		out = append(out, tab)
	}
	return out, nil
}
