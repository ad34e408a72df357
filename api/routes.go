package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter creates the gin engine and registers every route
func NewRouter(h *Handler, corsOrigins []string, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger.Named("http")))
	router.Use(CORS(corsOrigins))

	router.GET("/health", h.Health)

	v1 := router.Group("/api/v1")
	{
		printer := v1.Group("/printer")
		printer.POST("/connect", h.Connect)
		printer.POST("/disconnect", h.Disconnect)
		printer.GET("/status", h.Status)
		printer.GET("/scan", h.Scan)
		printer.GET("/events", h.Events)

		jobs := v1.Group("/print")
		jobs.POST("/receipt", h.PrintReceipt)
		jobs.POST("/kitchen", h.PrintKitchen)
		jobs.POST("/prebill", h.PrintPreBill)
		jobs.POST("/test", h.PrintTest)

		cache := v1.Group("/cache")
		cache.GET("/logos", h.LogoStats)
		cache.DELETE("/logos", h.ClearLogos)
	}

	return router
}
