package providers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"snoozed/internal/structures"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	filename := filepath.Base(flags.ConfigPath)
	viper.AddConfigPath(filepath.Dir(flags.ConfigPath))
	viper.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	viper.SetConfigType("yaml")

	viper.SetDefault("persistence.driver", "file")
	viper.SetDefault("wake.interval", "1m")
	viper.SetDefault("wake.recoveryCooldown", "5m")
	viper.SetDefault("session.size", 64)
	viper.SetDefault("session.ttl", "24h")
	viper.SetDefault("cache.ttl", "30s")

	viper.BindEnv("logger.level", "SNOOZED_LOG_LEVEL")
	viper.BindEnv("wake.interval", "SNOOZED_WAKE_INTERVAL")
	viper.BindEnv("persistence.driver", "SNOOZED_STORE_DRIVER")
	viper.BindEnv("persistence.redis.addr", "SNOOZED_REDIS_ADDR")
	viper.BindEnv("cache.enabled", "SNOOZED_CACHE_ENABLED")

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = viper.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "SnoozeDaemon"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
