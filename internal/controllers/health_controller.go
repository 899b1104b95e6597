package controllers

import (
	"fmt"
	"net/http"
	"time"

	"snoozed/internal/services"
	wakeInterfaces "snoozed/internal/wake/interfaces"
)

type HealthController struct {
	service   services.SnoozeServiceInterface
	scheduler wakeInterfaces.SchedulerInterface
	startTime time.Time
}

type healthResponse struct {
	Status        string  `json:"status"`
	Uptime        string  `json:"uptime"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	SnoozedItems  int     `json:"snoozed_items"`
	WakeState     string  `json:"wake_state"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(hc.startTime)
	resp := healthResponse{
		Status:        "ok",
		Uptime:        formatDuration(uptime),
		UptimeSeconds: uptime.Seconds(),
		WakeState:     hc.scheduler.State().String(),
	}

	status := http.StatusOK
	count, err := hc.service.Count(r.Context())
	if err != nil {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	resp.SnoozedItems = count

	writeJSON(w, status, resp)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(service services.SnoozeServiceInterface, scheduler wakeInterfaces.SchedulerInterface) *HealthController {
	return &HealthController{
		service:   service,
		scheduler: scheduler,
		startTime: time.Now(),
	}
}
