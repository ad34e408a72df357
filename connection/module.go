package connection

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nixxel-company-limited/posprint/adapter"
	"github.com/nixxel-company-limited/posprint/config"
)

func Module() fx.Option {
	return fx.Module(
		"connection",
		fx.Provide(func(cfg config.Config, drivers adapter.Drivers, logger *zap.Logger) *Manager {
			return NewManager(Config{SettleDelay: cfg.Printer.SettleDelay}, logger, drivers...)
		}),
		fx.Invoke(func(lc fx.Lifecycle, m *Manager) {
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					return m.Disconnect()
				},
			})
		}),
	)
}
