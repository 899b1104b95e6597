package controllers

import (
	"context"
	"errors"
	"net/http"

	"snoozed/internal/host"
	"snoozed/internal/providers"
	"snoozed/internal/wake"
	wakeInterfaces "snoozed/internal/wake/interfaces"
)

// Responder is a notifier clients can answer over HTTP.
type Responder interface {
	host.NotifierInterface
	Respond(ctx context.Context, id string, button *int) error
}

type NotificationController struct {
	logger    providers.Logger
	notifier  Responder
	scheduler wakeInterfaces.SchedulerInterface
}

func NewNotificationController(logger providers.Logger, notifier Responder, scheduler wakeInterfaces.SchedulerInterface) *NotificationController {
	return &NotificationController{
		logger:    logger,
		notifier:  notifier,
		scheduler: scheduler,
	}
}

func (nc *NotificationController) List(w http.ResponseWriter, r *http.Request) {
	active, err := nc.notifier.GetAllActive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": active})
}

type respondRequest struct {
	NotificationID string `json:"notificationId"`
	ButtonIndex    *int   `json:"buttonIndex"`
}

// Respond clicks a button, or dismisses the notification when no button is
// given.
func (nc *NotificationController) Respond(w http.ResponseWriter, r *http.Request) {
	var req respondRequest
	if err := decodeBody(w, r, &req); err != nil || req.NotificationID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "notificationId is required"})
		return
	}
	if b := req.ButtonIndex; b != nil && *b != wake.ButtonOpen && *b != wake.ButtonPostpone {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "buttonIndex must be 0 or 1"})
		return
	}

	err := nc.notifier.Respond(r.Context(), req.NotificationID, req.ButtonIndex)
	switch {
	case errors.Is(err, host.ErrNotificationNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case err != nil:
		nc.logger.Errorf(providers.TypePost, "Unable to respond to %s: %s", req.NotificationID, err)
		writeError(w, err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "state": nc.scheduler.State().String()})
	}
}

// Wake runs a scan immediately instead of waiting for the next tick.
func (nc *NotificationController) Wake(w http.ResponseWriter, r *http.Request) {
	announced, err := nc.scheduler.Tick(r.Context())
	if err != nil {
		nc.logger.Errorf(providers.TypeWake, "Manual wake scan failed: %s", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"announced": announced, "state": nc.scheduler.State().String()})
}
