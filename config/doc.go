// Package config provides application configuration management.
//
// The config package handles loading and validation of the application's
// configuration from YAML files and PODRUN_* environment variables. It
// covers server transport settings, container engine defaults, per-runtime
// image overrides and logging.
//
// Usage:
//
//	cfg, err := config.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Engine: %s\n", cfg.Engine.Cmd)
package config
