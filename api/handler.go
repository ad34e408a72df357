// Package api exposes the print service over HTTP.
package api

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/nixxel-company-limited/posprint/adapter"
	"github.com/nixxel-company-limited/posprint/connection"
	"github.com/nixxel-company-limited/posprint/imaging"
	"github.com/nixxel-company-limited/posprint/printing"
	"github.com/nixxel-company-limited/posprint/receipt"
)

// PrintService is the print service the handlers drive
type PrintService interface {
	Connect(ctx context.Context, address string) printing.Result
	Disconnect() printing.Result
	Status() connection.Status
	Watch() (<-chan connection.Status, func())
	Scan(ctx context.Context) ([]adapter.Device, error)
	PrintReceipt(ctx context.Context, sale *receipt.Sale, width imaging.PaperWidth) printing.Result
	PrintKitchenOrder(ctx context.Context, order *receipt.KitchenOrder, width imaging.PaperWidth, station string) printing.Result
	PrintPreBill(ctx context.Context, bill *receipt.PreBill, tax receipt.TaxConfig, width imaging.PaperWidth, surcharge receipt.SurchargeConfig) printing.Result
	PrintTest(ctx context.Context, width imaging.PaperWidth) printing.Result
	ClearLogos(source string) int
	LogoStats() imaging.CacheStats
}

// Handler serves the printer and print endpoints
type Handler struct {
	svc   PrintService
	paper imaging.PaperWidth
}

// NewHandler creates a handler. paper is used when a request names none.
func NewHandler(svc PrintService, paper imaging.PaperWidth) *Handler {
	return &Handler{svc: svc, paper: paper}
}

type ConnectRequest struct {
	Address string `json:"address" binding:"required"`
}

type ReceiptRequest struct {
	Paper string        `json:"paper"`
	Sale  *receipt.Sale `json:"sale"`
}

type KitchenRequest struct {
	Paper   string                `json:"paper"`
	Station string                `json:"station"`
	Order   *receipt.KitchenOrder `json:"order"`
}

type PreBillRequest struct {
	Paper     string                  `json:"paper"`
	Tax       receipt.TaxConfig       `json:"tax"`
	Surcharge receipt.SurchargeConfig `json:"surcharge"`
	PreBill   *receipt.PreBill        `json:"prebill"`
}

type TestRequest struct {
	Paper string `json:"paper"`
}

// paperOf resolves the requested paper class, writing a 400 when invalid
func (h *Handler) paperOf(c *gin.Context, requested string) (imaging.PaperWidth, bool) {
	if requested == "" {
		return h.paper, true
	}
	width, err := imaging.ParsePaperWidth(requested)
	if err != nil {
		BadRequest(c, err.Error())
		return 0, false
	}
	return width, true
}

func (h *Handler) respond(c *gin.Context, res printing.Result, message string) {
	if !res.Success {
		Fail(c, res.Err(), res)
		return
	}
	OK(c, message, res)
}

// Connect handles POST /printer/connect
func (h *Handler) Connect(c *gin.Context) {
	var req ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	h.respond(c, h.svc.Connect(c.Request.Context(), req.Address), "Printer connected")
}

// Disconnect handles POST /printer/disconnect
func (h *Handler) Disconnect(c *gin.Context) {
	h.respond(c, h.svc.Disconnect(), "Printer disconnected")
}

// Status handles GET /printer/status
func (h *Handler) Status(c *gin.Context) {
	OK(c, "Printer status retrieved", h.svc.Status())
}

// Events handles GET /printer/events, streaming status changes as
// server-sent events until the client goes away
func (h *Handler) Events(c *gin.Context) {
	updates, cancel := h.svc.Watch()
	defer cancel()

	c.SSEvent("status", h.svc.Status())
	c.Writer.Flush()
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case status, ok := <-updates:
			if !ok {
				return
			}
			c.SSEvent("status", status)
			c.Writer.Flush()
		}
	}
}

// Scan handles GET /printer/scan
func (h *Handler) Scan(c *gin.Context) {
	devices, err := h.svc.Scan(c.Request.Context())
	if err != nil {
		Fail(c, err, nil)
		return
	}
	OK(c, "Scan completed", devices)
}

// PrintReceipt handles POST /print/receipt
func (h *Handler) PrintReceipt(c *gin.Context) {
	var req ReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	width, ok := h.paperOf(c, req.Paper)
	if !ok {
		return
	}
	h.respond(c, h.svc.PrintReceipt(c.Request.Context(), req.Sale, width), "Receipt printed")
}

// PrintKitchen handles POST /print/kitchen
func (h *Handler) PrintKitchen(c *gin.Context) {
	var req KitchenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	width, ok := h.paperOf(c, req.Paper)
	if !ok {
		return
	}
	h.respond(c, h.svc.PrintKitchenOrder(c.Request.Context(), req.Order, width, req.Station), "Kitchen order printed")
}

// PrintPreBill handles POST /print/prebill
func (h *Handler) PrintPreBill(c *gin.Context) {
	var req PreBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	width, ok := h.paperOf(c, req.Paper)
	if !ok {
		return
	}
	h.respond(c, h.svc.PrintPreBill(c.Request.Context(), req.PreBill, req.Tax, width, req.Surcharge), "Pre-bill printed")
}

// PrintTest handles POST /print/test. The body is optional.
func (h *Handler) PrintTest(c *gin.Context) {
	var req TestRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "Invalid request: "+err.Error())
			return
		}
	}
	width, ok := h.paperOf(c, req.Paper)
	if !ok {
		return
	}
	h.respond(c, h.svc.PrintTest(c.Request.Context(), width), "Test page printed")
}

// ClearLogos handles DELETE /cache/logos, optionally ?source=
func (h *Handler) ClearLogos(c *gin.Context) {
	removed := h.svc.ClearLogos(c.Query("source"))
	OK(c, "Logo cache cleared", gin.H{"removed": removed})
}

// LogoStats handles GET /cache/logos
func (h *Handler) LogoStats(c *gin.Context) {
	OK(c, "Logo cache retrieved", h.svc.LogoStats())
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	status := h.svc.Status()
	c.JSON(200, gin.H{
		"status":  "ok",
		"service": "posprint",
		"printer": status.State,
	})
}
