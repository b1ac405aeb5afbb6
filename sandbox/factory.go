package sandbox

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/isdmx/podrun/config"
)

// NewLauncherFromConfig creates a Launcher with the image overrides and extra
// engine flags from the application configuration. metrics may be nil.
func NewLauncherFromConfig(logger *zap.Logger, cfg *config.Config, metrics *Metrics) (*Launcher, error) {
	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return NewLauncher(logger, append(opts, WithMetrics(metrics))...), nil
}

// OptionsFromConfig translates the runtimes and engine sections into launcher options
func OptionsFromConfig(cfg *config.Config) ([]LauncherOption, error) {
	images := make(map[RuntimeID]string, len(cfg.Runtimes))
	for name, rc := range cfg.Runtimes {
		if !IsKnownRuntime(name) {
			return nil, fmt.Errorf("%w: %q in runtimes section", ErrUnknownRuntime, name)
		}
		if rc.Image != "" {
			images[RuntimeID(name)] = rc.Image
		}
	}

	extraFlags, err := ParseExtraFlags(cfg.Engine.ExtraFlags)
	if err != nil {
		return nil, fmt.Errorf("invalid engine.extra_flags: %w", err)
	}

	return []LauncherOption{
		WithImages(images),
		WithExtraFlags(extraFlags),
	}, nil
}

// Defaults returns an ExecutionConfig carrying the configured engine defaults.
// Callers set Runtime and Code and override any limits from the request.
func Defaults(cfg *config.Config) ExecutionConfig {
	return ExecutionConfig{
		Cmd:        cfg.Engine.Cmd,
		CPUs:       cfg.Engine.CPUs,
		Memory:     cfg.Engine.Memory,
		MemorySwap: cfg.Engine.MemorySwap,
		TimeoutSec: cfg.Engine.TimeoutSec,
	}
}
