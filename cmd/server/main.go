package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/isdmx/podrun/config"
	"github.com/isdmx/podrun/logger"
	"github.com/isdmx/podrun/mcpserver"
	"github.com/isdmx/podrun/sandbox"
)

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func main() {
	app := fx.New(
		fx.Provide(
			config.New,
			logger.NewFromConfig,

			// Metrics
			newRegistry,
			func(reg *prometheus.Registry) prometheus.Registerer { return reg },
			func(reg *prometheus.Registry) prometheus.Gatherer { return reg },
			sandbox.NewMetrics,

			// Launcher behind the Executor interface
			sandbox.NewLauncherFromConfig,
			func(l *sandbox.Launcher) sandbox.Executor { return l },

			mcpserver.New,
		),

		fx.Invoke(
			func(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg *config.Config, log *zap.Logger, server *mcpserver.MCPServer) {
				serve := server.ServeStdio
				if cfg.Server.Transport == "http" {
					serve = server.ServeHTTP
				}

				lc.Append(fx.Hook{
					OnStart: func(context.Context) error {
						go func() {
							if err := serve(); err != nil {
								log.Error("server stopped", zap.Error(err))
								_ = shutdowner.Shutdown(fx.ExitCode(1))
								return
							}
							// stdio returns when the client closes the stream
							_ = shutdowner.Shutdown()
						}()
						return nil
					},
					OnStop: func(ctx context.Context) error {
						return server.Shutdown(ctx)
					},
				})
			},
		),

		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)

	app.Run()
}
