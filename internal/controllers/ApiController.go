package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/atomic"

	"snoozed/internal/messages"
	"snoozed/internal/models"
	"snoozed/internal/providers"
	"snoozed/internal/schedule"
	"snoozed/internal/services"
	"snoozed/internal/storage/interfaces"
)

// Read cache keys.
const (
	cacheSnoozed  = "snoozed"
	cacheSettings = "settings"
	cacheBadge    = "badge"
)

type ApiController struct {
	logger     providers.Logger
	service    services.SnoozeServiceInterface
	dispatcher *messages.Dispatcher
	cache      providers.CacheProviderInterface
	clock      providers.Clock
	generation atomic.Uint64
}

// NewApiController wires the read cache to the store's change stream so
// cached responses never outlive a write.
func NewApiController(
	logger providers.Logger,
	service services.SnoozeServiceInterface,
	dispatcher *messages.Dispatcher,
	cache providers.CacheProviderInterface,
	gateway interfaces.GatewayInterface,
	clock providers.Clock,
) *ApiController {
	ac := &ApiController{
		logger:     logger,
		service:    service,
		dispatcher: dispatcher,
		cache:      cache,
		clock:      clock,
	}
	gateway.OnChange(ac.invalidate)
	return ac
}

func (ac *ApiController) invalidate(keys []string) {
	ac.generation.Inc()
	for _, key := range keys {
		switch key {
		case models.KeySettings:
			ac.cache.Del(cacheSettings)
		default:
			ac.cache.Del(cacheSnoozed)
		}
	}
	ac.cache.Del(cacheBadge)
}

func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, cacheKey string, compute func() (any, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		writeRaw(w, http.StatusOK, data)
		return
	}

	gen := ac.generation.Load()
	result, err := compute()
	if err != nil {
		ac.logger.Errorf(providers.TypeGet, "Unable to build %s response: %s", cacheKey, err)
		writeError(w, err)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// A write during compute may already have invalidated what we read.
	if ac.generation.Load() == gen {
		ac.cache.Set(cacheKey, gson)
	}
	writeRaw(w, http.StatusOK, gson)
}

// Message is the single entry point mirroring the extension message bus.
func (ac *ApiController) Message(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	if err := decodeBody(w, r, &req); err != nil || req == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Request must be an object"})
		return
	}

	resp, err := ac.dispatcher.Dispatch(r.Context(), req)
	if err != nil {
		if !messages.IsClientError(err) {
			ac.logger.Errorf(providers.TypePost, "Message %v failed: %s", req["action"], err)
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (ac *ApiController) GetSnoozed(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, cacheSnoozed, func() (any, error) {
		return ac.service.GetSnoozedTabs(r.Context())
	})
}

func (ac *ApiController) GetSettings(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, cacheSettings, func() (any, error) {
		return ac.service.GetSettings(r.Context())
	})
}

type badgeResponse struct {
	Text string `json:"text"`
}

func (ac *ApiController) GetBadge(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, cacheBadge, func() (any, error) {
		text, err := ac.service.BadgeText(r.Context())
		return badgeResponse{Text: text}, err
	})
}

// Export sends the whole document as a dated attachment.
func (ac *ApiController) Export(w http.ResponseWriter, r *http.Request) {
	env, err := ac.service.ExportTabs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if env.Len() == 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: services.ErrNothingToExport.Error()})
		return
	}

	gson, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	filename := fmt.Sprintf("snooooze-export-%s.json", ac.clock.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	writeRaw(w, http.StatusOK, gson)
}

// Import merges an uploaded V1 or V2 document.
func (ac *ApiController) Import(w http.ResponseWriter, r *http.Request) {
	var raw any
	if err := decodeBody(w, r, &raw); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ImportResult{Success: false, Error: "Invalid JSON"})
		return
	}
	result := ac.service.ImportTabs(r.Context(), raw)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, result)
}

type intervalOption struct {
	Name string `json:"name"`
	At   int64  `json:"at,omitempty"`
}

// Intervals resolves every named interval against the current settings.
func (ac *ApiController) Intervals(w http.ResponseWriter, r *http.Request) {
	settings, err := ac.service.GetSettings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	now := ac.clock.Now()
	options := make([]intervalOption, 0, len(schedule.Intervals()))
	for _, name := range schedule.Intervals() {
		option := intervalOption{Name: name}
		at, err := schedule.Resolve(name, now, settings)
		switch {
		case err == nil:
			option.At = at.UnixMilli()
		case !errors.Is(err, schedule.ErrUnresolved):
			ac.logger.Warnf(providers.TypeGet, "Unable to resolve %s: %s", name, err)
		}
		options = append(options, option)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"now":       now.UnixMilli(),
		"intervals": options,
		"timezone":  schedule.Location(settings, time.Local).String(),
	})
}
