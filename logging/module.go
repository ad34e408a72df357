package logging

import (
	"context"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/nixxel-company-limited/posprint/config"
)

func Module() fx.Option {
	return fx.Module(
		"logging",
		fx.Provide(func(cfg config.Config) (*os.File, error) {
			return OpenLogFile(cfg.Log.File)
		}),
		fx.Provide(func(cfg config.Config, file *os.File) (*zap.Logger, error) {
			base, err := New(cfg.Log.Debug)
			if err != nil {
				return nil, err
			}
			return AttachFileLogger(base, file, cfg.Log.Debug), nil
		}),
		fx.Invoke(func(lc fx.Lifecycle, logger *zap.Logger, file *os.File) {
			lc.Append(fx.Hook{
				OnStop: func(_ context.Context) error {
					_ = logger.Sync()
					if file == nil {
						return nil
					}
					return file.Close()
				},
			})
		}),
	)
}

// WithFxLogger routes fx lifecycle events through zap
func WithFxLogger() fx.Option {
	return fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: logger.Named("fx")}
	})
}
