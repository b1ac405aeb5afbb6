package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Transport: "http",
			HTTPPort:  8080,
		},
		Engine: EngineConfig{
			Cmd:        "podman",
			CPUs:       1,
			Memory:     "128m",
			MemorySwap: "512m",
			TimeoutSec: 60,
		},
		Runtimes: map[string]RuntimeConfig{
			"node": {Image: "node:22-alpine"},
		},
		Logging: LoggingConfig{
			Mode:  "production",
			Level: "info",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		err := validConfig().validate()
		require.NoError(t, err)
	})

	t.Run("InvalidServerTransport", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.Transport = "invalid"

		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server.transport")
	})

	t.Run("InvalidHTTPPort", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.HTTPPort = 70000

		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server.http_port")
	})

	t.Run("PortIgnoredForStdio", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.Transport = "stdio"
		cfg.Server.HTTPPort = 0

		require.NoError(t, cfg.validate())
	})

	t.Run("UnsupportedEngine", func(t *testing.T) {
		cfg := validConfig()
		cfg.Engine.Cmd = "docker"

		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported engine.cmd")
	})

	t.Run("NegativeCPUs", func(t *testing.T) {
		cfg := validConfig()
		cfg.Engine.CPUs = -0.5

		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "engine.cpus must not be negative")
	})

	t.Run("NegativeTimeout", func(t *testing.T) {
		cfg := validConfig()
		cfg.Engine.TimeoutSec = -1

		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "engine.timeout_sec must not be negative")
	})

	t.Run("InvalidLoggingMode", func(t *testing.T) {
		cfg := validConfig()
		cfg.Logging.Mode = "invalid_mode"

		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid logging.mode")
	})

	t.Run("InvalidLogLevel", func(t *testing.T) {
		cfg := validConfig()
		cfg.Logging.Level = "invalid_level"

		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid logging.level")
	})
}

func TestLoad(t *testing.T) {
	t.Run("FromFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "podrun.yaml")
		content := `
server:
  transport: http
  http_port: 9090
engine:
  cpus: 0.5
  memory: 256m
  timeout_sec: 120
  extra_flags: "--pids-limit=64"
runtimes:
  node:
    image: node:22-alpine
logging:
  mode: development
  level: debug
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "http", cfg.Server.Transport)
		assert.Equal(t, 9090, cfg.Server.HTTPPort)
		assert.Equal(t, "podman", cfg.Engine.Cmd)
		assert.InDelta(t, 0.5, cfg.Engine.CPUs, 1e-9)
		assert.Equal(t, "256m", cfg.Engine.Memory)
		assert.Equal(t, "512m", cfg.Engine.MemorySwap)
		assert.Equal(t, 120, cfg.Engine.TimeoutSec)
		assert.Equal(t, "--pids-limit=64", cfg.Engine.ExtraFlags)
		assert.Equal(t, "node:22-alpine", cfg.Runtimes["node"].Image)
		assert.Equal(t, "development", cfg.Logging.Mode)
		assert.Equal(t, 2*time.Minute, cfg.GetTimeout())
	})

	t.Run("MissingExplicitFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error reading config file")
	})

	t.Run("InvalidFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "podrun.yaml")
		require.NoError(t, os.WriteFile(path, []byte("engine:\n  cmd: docker\n"), 0o600))

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config validation error")
	})

	t.Run("DefaultsWithoutFile", func(t *testing.T) {
		t.Chdir(t.TempDir())

		cfg, err := New()
		require.NoError(t, err)
		assert.Equal(t, "stdio", cfg.Server.Transport)
		assert.Equal(t, "podman", cfg.Engine.Cmd)
		assert.Equal(t, 60, cfg.Engine.TimeoutSec)
		assert.Equal(t, "production", cfg.Logging.Mode)
	})

	t.Run("EnvironmentOverride", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("PODRUN_ENGINE_MEMORY", "64m")
		t.Setenv("PODRUN_LOGGING_LEVEL", "warn")

		cfg, err := New()
		require.NoError(t, err)
		assert.Equal(t, "64m", cfg.Engine.Memory)
		assert.Equal(t, "warn", cfg.Logging.Level)
	})
}
