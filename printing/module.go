package printing

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nixxel-company-limited/posprint/config"
	"github.com/nixxel-company-limited/posprint/connection"
	"github.com/nixxel-company-limited/posprint/imaging"
	"github.com/nixxel-company-limited/posprint/receipt"
)

// ConfigFrom maps the printer settings onto a service Config
func ConfigFrom(cfg config.Config) Config {
	return Config{
		WriteTimeout: cfg.Printer.WriteTimeout,
		QR: receipt.QRStyle{
			Raster:     cfg.Printer.QRMode == "raster",
			ModuleSize: cfg.Printer.QRModuleSize,
			Level:      cfg.Printer.QRLevel,
		},
	}
}

func Module() fx.Option {
	return fx.Module(
		"printing",
		fx.Provide(func(cfg config.Config, m *connection.Manager, p *imaging.Processor, logger *zap.Logger) *Service {
			return NewService(ConfigFrom(cfg), m, p, logger)
		}),
	)
}
