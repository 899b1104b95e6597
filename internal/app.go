package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"snoozed/internal/controllers"
	"snoozed/internal/providers"
	"snoozed/internal/services"
	"snoozed/internal/storage/interfaces"
	"snoozed/internal/structures"
	wakeInterfaces "snoozed/internal/wake/interfaces"
)

type App struct {
	WebServer *http.Server
}

func NewApp(
	healthController *controllers.HealthController,
	service services.SnoozeServiceInterface,
	scheduler wakeInterfaces.SchedulerInterface,
	gateway interfaces.GatewayInterface,
	conf *structures.Config,
	logger providers.Logger,
	router providers.RouterProviderInterface,
	metrics providers.MetricsProviderInterface,
) (*App, error) {
	// Inner mux: API routes
	apiMux := http.NewServeMux()
	for _, route := range router.GetRoutes() {
		apiMux.Handle(route.Url, route.Handler)
	}

	// Wrap API routes with metrics middleware
	instrumentedAPI := providers.MetricsMiddleware(metrics, router.GetRoutes(), apiMux)

	// Outer mux: infrastructure + instrumented API
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthController.Health)
	if conf.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.Handle("/", instrumentedAPI)

	logger.Infof(providers.TypeApp, "Starting %s", conf.AppName)

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 10*time.Second)
	err := service.Load(loadCtx)
	cancelLoad()
	if err != nil {
		_ = gateway.Close()
		return nil, fmt.Errorf("unable to load snoozed items: %w", err)
	}

	app := &App{
		WebServer: &http.Server{
			Addr:         conf.WebServer.Host + ":" + strconv.Itoa(conf.WebServer.Port),
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	scheduler.Init()

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof(providers.TypeApp, "Listening HTTP clients on %s:%d", conf.WebServer.Host, conf.WebServer.Port)
		if err := app.WebServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Infof(providers.TypeApp, "Shutdown signal received")
	case err := <-serverErr:
		scheduler.Stop()
		_ = gateway.Close()
		return nil, fmt.Errorf("server error: %w", err)
	}

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err = app.WebServer.Shutdown(ctx); err != nil {
		return nil, err
	}
	if err = gateway.Close(); err != nil {
		return nil, err
	}
	logger.Infof(providers.TypeApp, "gracefully stopped")
	return app, nil
}
