package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nixxel-company-limited/posprint/config"
	"github.com/nixxel-company-limited/posprint/imaging"
	"github.com/nixxel-company-limited/posprint/printing"
)

func Module() fx.Option {
	return fx.Module(
		"api",
		fx.Provide(func(cfg config.Config, svc *printing.Service) (*Handler, error) {
			paper, err := imaging.ParsePaperWidth(cfg.Printer.Paper)
			if err != nil {
				return nil, err
			}
			return NewHandler(svc, paper), nil
		}),
		fx.Provide(func(cfg config.Config, h *Handler, logger *zap.Logger) *gin.Engine {
			if !cfg.Log.Debug {
				gin.SetMode(gin.ReleaseMode)
			}
			return NewRouter(h, cfg.HTTP.CORSOrigins, logger)
		}),
		fx.Invoke(registerServer),
	)
}

func registerServer(lc fx.Lifecycle, cfg config.Config, router *gin.Engine, logger *zap.Logger) {
	// base is cancelled on stop so open event streams end
	base, cancel := context.WithCancel(context.Background())
	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}
	logger = logger.Named("http")

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			logger.Info("HTTP API listening", zap.String("address", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("HTTP server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return srv.Shutdown(ctx)
		},
	})
}
