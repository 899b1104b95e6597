//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"

	"snoozed/internal"
	"snoozed/internal/controllers"
	"snoozed/internal/host"
	"snoozed/internal/messages"
	"snoozed/internal/providers"
	"snoozed/internal/services"
	"snoozed/internal/storage"
	"snoozed/internal/structures"
	"snoozed/internal/wake"
	wakeInterfaces "snoozed/internal/wake/interfaces"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,
		providers.NewSessionProvider,
		providers.NewClock,

		storage.NewGateway,
		host.NewCommandTabHost,
		wire.Bind(new(host.TabHostInterface), new(*host.CommandTabHost)),
		host.NewInboxNotifier,
		wire.Bind(new(host.NotifierInterface), new(*host.InboxNotifier)),
		wire.Bind(new(controllers.Responder), new(*host.InboxNotifier)),

		services.NewSnoozeService,
		wire.Bind(new(services.SnoozeServiceInterface), new(*services.SnoozeService)),
		messages.NewDispatcher,
		wake.NewScheduler,
		wire.Bind(new(wakeInterfaces.SchedulerInterface), new(*wake.Scheduler)),

		controllers.NewApiController,
		controllers.NewNotificationController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
