package internal

import (
	"net/http"

	"snoozed/internal/controllers"
	"snoozed/internal/providers"
)

func InitRoutes(apiController *controllers.ApiController, notificationController *controllers.NotificationController, logger providers.Logger) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider(logger)

	routers.Post("/message", http.HandlerFunc(apiController.Message))
	routers.Get("/snoozed", http.HandlerFunc(apiController.GetSnoozed))
	routers.Get("/settings", http.HandlerFunc(apiController.GetSettings))
	routers.Get("/badge", http.HandlerFunc(apiController.GetBadge))
	routers.Get("/intervals", http.HandlerFunc(apiController.Intervals))
	routers.Get("/export", http.HandlerFunc(apiController.Export))
	routers.Post("/import", http.HandlerFunc(apiController.Import))

	routers.Get("/notifications", http.HandlerFunc(notificationController.List))
	routers.Post("/notifications/respond", http.HandlerFunc(notificationController.Respond))
	routers.Post("/wake", http.HandlerFunc(notificationController.Wake))
	return routers
}
