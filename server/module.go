package server

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nixxel-company-limited/posprint/config"
	"github.com/nixxel-company-limited/posprint/connection"
)

func Module() fx.Option {
	return fx.Module(
		"relay",
		fx.Invoke(func(lc fx.Lifecycle, cfg config.Config, m *connection.Manager, logger *zap.Logger) {
			if !cfg.Relay.Enabled {
				logger.Info("Raw relay disabled")
				return
			}
			srv := New(m, cfg.Relay.Address, cfg.Printer.WriteTimeout, logger)
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					return srv.StartAsync()
				},
				OnStop: func(context.Context) error {
					return srv.Stop()
				},
			})
		}),
	)
}
