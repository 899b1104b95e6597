package interfaces

import (
	"context"

	"snoozed/internal/models"
)

type SchedulerInterface interface {
	Init()
	Stop()
	// Tick runs one scan and returns how many items were announced.
	Tick(ctx context.Context) (int, error)
	State() models.WakeState
}
