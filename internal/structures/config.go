package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"min:0"`
	Prefix   string `yaml:"prefix"`
}

type Persistence struct {
	Driver   string      `yaml:"driver" validate:"required|in:file,redis"`
	FilePath string      `yaml:"filePath" validate:"required|unixPath"`
	Compress bool        `yaml:"compress"`
	Redis    RedisConfig `yaml:"redis"`
}

type WakeConfig struct {
	Interval         time.Duration `yaml:"interval" validate:"required|min:1"`
	StartupDelay     time.Duration `yaml:"startupDelay" validate:"min:0"`
	RecoveryCooldown time.Duration `yaml:"recoveryCooldown" validate:"required|min:1"`
}

type SessionConfig struct {
	Size int           `yaml:"size" validate:"required|min:1"`
	TTL  time.Duration `yaml:"ttl" validate:"min:0"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// HostConfig describes the command used to hand urls back to the desktop.
type HostConfig struct {
	Opener    string   `yaml:"opener"`
	Args      []string `yaml:"args"`
	WindowArg string   `yaml:"windowArg"`
}

type Config struct {
	AppName     string
	Debug       bool
	Path        string
	WebServer   Server        `yaml:"webServer"`
	Persistence Persistence   `yaml:"persistence"`
	Wake        WakeConfig    `yaml:"wake"`
	Session     SessionConfig `yaml:"session"`
	Logger      LoggerConfig  `yaml:"logger"`
	Cache       CacheConfig   `yaml:"cache"`
	Metrics     MetricsConfig `yaml:"metrics"`
	Host        HostConfig    `yaml:"host"`
}
