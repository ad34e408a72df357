package imaging

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nixxel-company-limited/posprint/config"
)

func Module() fx.Option {
	return fx.Module(
		"imaging",
		fx.Provide(
			NewLogoCache,
			func(cfg config.Config, cache *LogoCache, logger *zap.Logger) *Processor {
				return NewProcessor(NewFetcher(cfg.Image.FetchTimeout), cache, logger)
			},
		),
	)
}
