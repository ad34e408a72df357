// Package imaging converts logos into packed monochrome rasters for thermal printers.
package imaging

import (
	"context"

	"go.uber.org/zap"

	"github.com/nixxel-company-limited/posprint/apperror"
)

// Source returns the bytes of an image reference
type Source interface {
	Fetch(ctx context.Context, source string) ([]byte, error)
}

// Processor prepares logos, consulting a LogoCache first
type Processor struct {
	source Source
	cache  *LogoCache
	logger *zap.Logger
}

// NewProcessor wires a processor to its fetcher and cache
func NewProcessor(source Source, cache *LogoCache, logger *zap.Logger) *Processor {
	return &Processor{source: source, cache: cache, logger: logger.Named("imaging")}
}

// Prepare returns the raster for source at the given paper class.
// Failures never propagate: the returned logo has Ready false and a nil
// raster, and the failure is logged as ImageUnavailable.
func (p *Processor) Prepare(ctx context.Context, source string, width PaperWidth) Logo {
	spec := width.Spec()
	if source == "" {
		return Logo{DisplayWidth: spec.RecommendedWidth}
	}
	if logo, ok := p.cache.Get(source, width); ok {
		return logo
	}

	logo, err := p.convert(ctx, source, spec)
	if err != nil {
		p.logger.Warn("logo unavailable, printing without it",
			zap.String("source", truncateSource(source)),
			zap.Stringer("paper", width),
			zap.Error(apperror.New(apperror.ImageUnavailable, "imaging.prepare", err)),
		)
		logo = Logo{Source: source, DisplayWidth: spec.RecommendedWidth}
	}
	p.cache.Put(source, width, logo)
	return logo
}

func (p *Processor) convert(ctx context.Context, source string, spec WidthSpec) (Logo, error) {
	data, err := p.source.Fetch(ctx, source)
	if err != nil {
		return Logo{}, err
	}
	img, err := Decode(data)
	if err != nil {
		return Logo{}, err
	}
	r, err := Rasterize(img, spec.MaxWidth, spec.MaxHeight)
	if err != nil {
		return Logo{}, err
	}
	return Logo{
		Source:       source,
		Ready:        true,
		Raster:       r.Data,
		PixelWidth:   r.Width,
		Height:       r.Height,
		DisplayWidth: spec.RecommendedWidth,
	}, nil
}

func truncateSource(s string) string {
	if len(s) > 64 {
		return s[:64] + "..."
	}
	return s
}

// Clear drops cached logos for source, or all of them when source is empty
func (p *Processor) Clear(source string) int {
	n := p.cache.Clear(source)
	p.logger.Info("Logo cache cleared", zap.String("source", truncateSource(source)), zap.Int("removed", n))
	return n
}

// Stats describes the cached logos
func (p *Processor) Stats() CacheStats {
	return p.cache.Stats()
}
