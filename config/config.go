package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig             `mapstructure:"server"`
	Engine   EngineConfig             `mapstructure:"engine"`
	Runtimes map[string]RuntimeConfig `mapstructure:"runtimes"`
	Logging  LoggingConfig            `mapstructure:"logging"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Transport string `mapstructure:"transport"`
	HTTPPort  int    `mapstructure:"http_port"`
}

// EngineConfig holds the container engine defaults applied when a request omits them
type EngineConfig struct {
	Cmd        string  `mapstructure:"cmd"`
	CPUs       float64 `mapstructure:"cpus"`
	Memory     string  `mapstructure:"memory"`
	MemorySwap string  `mapstructure:"memory_swap"`
	TimeoutSec int     `mapstructure:"timeout_sec"`
	// ExtraFlags is split like a shell command line and placed before the image.
	// Each field must be a --name=value long flag.
	ExtraFlags string `mapstructure:"extra_flags"`
}

// RuntimeConfig holds per-runtime overrides
type RuntimeConfig struct {
	Image string `mapstructure:"image"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

// EnvPrefix is the prefix for environment variable overrides, e.g. PODRUN_ENGINE_CPUS.
const EnvPrefix = "PODRUN"

// New loads and validates the application configuration from ./config.yaml or ./config/config.yaml
func New() (*Config, error) {
	return Load("")
}

// Load reads the configuration from path, or searches the default locations when path is empty
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, continue with defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.transport", "stdio")
	v.SetDefault("server.http_port", 8080)

	v.SetDefault("engine.cmd", "podman")
	v.SetDefault("engine.cpus", 1)
	v.SetDefault("engine.memory", "128m")
	v.SetDefault("engine.memory_swap", "512m")
	v.SetDefault("engine.timeout_sec", 60)
	v.SetDefault("engine.extra_flags", "")

	v.SetDefault("logging.mode", "production")
	v.SetDefault("logging.level", "info")
}

// validate ensures the configuration is valid
func (c *Config) validate() error {
	if c.Server.Transport != "stdio" && c.Server.Transport != "http" {
		return fmt.Errorf("invalid server.transport: %s, must be 'stdio' or 'http'", c.Server.Transport)
	}

	if c.Server.Transport == "http" && (c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535) {
		return fmt.Errorf("invalid server.http_port: %d", c.Server.HTTPPort)
	}

	if c.Engine.Cmd != "podman" {
		return fmt.Errorf("unsupported engine.cmd: %s, only 'podman' is supported", c.Engine.Cmd)
	}

	if c.Engine.CPUs < 0 {
		return fmt.Errorf("engine.cpus must not be negative, got: %v", c.Engine.CPUs)
	}

	if c.Engine.TimeoutSec < 0 {
		return fmt.Errorf("engine.timeout_sec must not be negative, got: %d", c.Engine.TimeoutSec)
	}

	if c.Logging.Mode != "production" && c.Logging.Mode != "development" {
		return fmt.Errorf("invalid logging.mode: %s, must be 'production' or 'development'", c.Logging.Mode)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error", "dpanic", "panic", "fatal":
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	return nil
}

// GetTimeout returns the default execution timeout as a duration
func (c *Config) GetTimeout() time.Duration {
	return time.Duration(c.Engine.TimeoutSec) * time.Second
}
