package storage

import (
	"context"
	"fmt"
	"time"

	"snoozed/internal/providers"
	"snoozed/internal/storage/interfaces"
	"snoozed/internal/structures"
)

// NewGateway opens the store selected by persistence.driver.
func NewGateway(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface) (interfaces.GatewayInterface, error) {
	var inner interfaces.GatewayInterface
	switch conf.Persistence.Driver {
	case "redis":
		g, err := NewRedisGateway(conf.Persistence.Redis, logger)
		if err != nil {
			return nil, err
		}
		inner = g
	case "file", "":
		compressor, err := NewCompressor(conf.Persistence.Compress)
		if err != nil {
			return nil, err
		}
		g, err := NewFileGateway(conf.Persistence.FilePath, compressor, logger)
		if err != nil {
			compressor.Close()
			return nil, err
		}
		logger.Infof(providers.TypeApp, "Using file store %s (compress=%t)", conf.Persistence.FilePath, conf.Persistence.Compress)
		inner = g
	default:
		return nil, fmt.Errorf("unknown persistence driver %q", conf.Persistence.Driver)
	}
	return &instrumentedGateway{GatewayInterface: inner, metrics: metrics}, nil
}

// instrumentedGateway times every write.
type instrumentedGateway struct {
	interfaces.GatewayInterface
	metrics providers.MetricsProviderInterface
}

func (g *instrumentedGateway) Set(ctx context.Context, values map[string][]byte) error {
	start := time.Now()
	defer func() { g.metrics.ObservePersistenceDuration(time.Since(start)) }()
	return g.GatewayInterface.Set(ctx, values)
}

func (g *instrumentedGateway) Remove(ctx context.Context, keys ...string) error {
	start := time.Now()
	defer func() { g.metrics.ObservePersistenceDuration(time.Since(start)) }()
	return g.GatewayInterface.Remove(ctx, keys...)
}
