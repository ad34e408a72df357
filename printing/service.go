// Package printing renders print jobs and sends them to the connected printer.
package printing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nixxel-company-limited/posprint/adapter"
	"github.com/nixxel-company-limited/posprint/apperror"
	"github.com/nixxel-company-limited/posprint/connection"
	"github.com/nixxel-company-limited/posprint/escpos"
	"github.com/nixxel-company-limited/posprint/imaging"
	"github.com/nixxel-company-limited/posprint/receipt"
)

// Printer is the connection a service prints through
type Printer interface {
	Connect(ctx context.Context, address string) (connection.Status, error)
	Disconnect() error
	Write(ctx context.Context, data []byte) error
	Scan(ctx context.Context) ([]adapter.Device, error)
	IsConnected() bool
	Status() connection.Status
	Subscribe() (<-chan connection.Status, func())
}

// Logos prepares and caches business logos
type Logos interface {
	Prepare(ctx context.Context, source string, width imaging.PaperWidth) imaging.Logo
	Clear(source string) int
	Stats() imaging.CacheStats
}

// Config tunes job execution
type Config struct {
	// WriteTimeout bounds a whole job, from rendering to the last byte written
	WriteTimeout time.Duration
	QR           receipt.QRStyle
}

// DefaultConfig returns the settings used when none are configured
func DefaultConfig() Config {
	return Config{WriteTimeout: 30 * time.Second, QR: receipt.QRStyle{ModuleSize: 6}}
}

// Result is the outcome of a connect or print call
type Result struct {
	Success   bool               `json:"success"`
	JobID     string             `json:"job_id,omitempty"`
	Bytes     int                `json:"bytes,omitempty"`
	Status    *connection.Status `json:"status,omitempty"`
	Error     string             `json:"error,omitempty"`
	ErrorKind string             `json:"error_kind,omitempty"`

	err error
}

// Err returns the failure behind an unsuccessful result
func (r Result) Err() error {
	return r.err
}

// Failure builds an unsuccessful result for err
func Failure(err error) Result {
	return Result{}.fail(err)
}

func (r Result) fail(err error) Result {
	r.Success = false
	r.err = err
	r.Error = err.Error()
	r.ErrorKind = apperror.KindOf(err).String()
	return r
}

// Service executes print jobs against a single printer connection
type Service struct {
	cfg     Config
	printer Printer
	logos   Logos
	logger  *zap.Logger
}

// NewService creates a print service
func NewService(cfg Config, printer Printer, logos Logos, logger *zap.Logger) *Service {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultConfig().WriteTimeout
	}
	return &Service{
		cfg:     cfg,
		printer: printer,
		logos:   logos,
		logger:  logger.Named("printing"),
	}
}

// Connect connects to address, replacing any live connection
func (s *Service) Connect(ctx context.Context, address string) Result {
	status, err := s.printer.Connect(ctx, address)
	res := Result{Status: &status}
	if err != nil {
		return res.fail(err)
	}
	res.Success = true
	return res
}

// Disconnect closes the live connection
func (s *Service) Disconnect() Result {
	err := s.printer.Disconnect()
	status := s.printer.Status()
	res := Result{Status: &status}
	if err != nil {
		return res.fail(err)
	}
	res.Success = true
	return res
}

// IsConnected reports whether a printer is connected
func (s *Service) IsConnected() bool {
	return s.printer.IsConnected()
}

// Status returns the connection state
func (s *Service) Status() connection.Status {
	return s.printer.Status()
}

// Watch streams connection status changes until cancel is called
func (s *Service) Watch() (<-chan connection.Status, func()) {
	return s.printer.Subscribe()
}

// Scan lists nearby Bluetooth printers
func (s *Service) Scan(ctx context.Context) ([]adapter.Device, error) {
	return s.printer.Scan(ctx)
}

// ClearLogos drops cached logos for source, all of them when empty
func (s *Service) ClearLogos(source string) int {
	return s.logos.Clear(source)
}

// LogoStats describes the logo cache
func (s *Service) LogoStats() imaging.CacheStats {
	return s.logos.Stats()
}

// PrintReceipt prints a sale document
func (s *Service) PrintReceipt(ctx context.Context, sale *receipt.Sale, width imaging.PaperWidth) Result {
	return s.run(ctx, sale, func(ctx context.Context, b *escpos.Builder) {
		receipt.FormatSale(b, sale, receipt.SaleOptions{
			Layout: receipt.LayoutFor(width),
			Logo:   s.logos.Prepare(ctx, sale.Business.LogoURL, width),
			QR:     s.cfg.QR,
		})
	})
}

// PrintKitchenOrder prints a kitchen ticket for station
func (s *Service) PrintKitchenOrder(ctx context.Context, order *receipt.KitchenOrder, width imaging.PaperWidth, station string) Result {
	return s.run(ctx, order, func(_ context.Context, b *escpos.Builder) {
		receipt.FormatKitchen(b, order, receipt.KitchenOptions{
			Layout:  receipt.LayoutFor(width),
			Station: station,
		})
	})
}

// PrintPreBill prints a pre-bill with totals recomputed under tax
func (s *Service) PrintPreBill(ctx context.Context, bill *receipt.PreBill, tax receipt.TaxConfig, width imaging.PaperWidth, surcharge receipt.SurchargeConfig) Result {
	return s.run(ctx, bill, func(_ context.Context, b *escpos.Builder) {
		receipt.FormatPreBill(b, bill, receipt.PreBillOptions{
			Layout:    receipt.LayoutFor(width),
			Tax:       tax,
			Surcharge: surcharge,
		})
	})
}

// PrintTest prints the printer test page
func (s *Service) PrintTest(ctx context.Context, width imaging.PaperWidth) Result {
	status := s.printer.Status()
	return s.run(ctx, testJob{}, func(_ context.Context, b *escpos.Builder) {
		receipt.FormatTestPage(b, receipt.LayoutFor(width), receipt.TestPage{
			Transport: status.Kind.String(),
			Address:   status.Address,
			PrintedAt: time.Now(),
		})
	})
}

type testJob struct{}

func (testJob) JobKind() string { return "test" }
func (testJob) Validate() error { return nil }

// run validates job, renders it and writes the stream under the job deadline.
// A panic while rendering is reported as a failed result.
func (s *Service) run(ctx context.Context, job receipt.Job, render func(context.Context, *escpos.Builder)) (res Result) {
	res.JobID = uuid.NewString()
	log := s.logger.With(zap.String("job_id", res.JobID), zap.String("job", job.JobKind()))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Error("Print job panicked", zap.Any("panic", r), zap.Stack("stack"))
			res = res.fail(apperror.New(apperror.Unknown, "printing.run", fmt.Errorf("panic: %v", r)))
		}
	}()

	if err := job.Validate(); err != nil {
		log.Warn("Rejected print job", zap.Error(err))
		return res.fail(apperror.New(apperror.InvalidJob, "printing.validate", err))
	}
	if !s.printer.IsConnected() {
		return res.fail(apperror.New(apperror.NotConnected, "printing.run", nil))
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	b := escpos.NewBuilder()
	render(ctx, b)
	res.Bytes = b.Len()

	if err := s.printer.Write(ctx, b.Bytes()); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && apperror.KindOf(err) == apperror.Unknown {
			err = apperror.New(apperror.WriteFailed, "printing.write", err)
		}
		log.Error("Print job failed",
			zap.Int("bytes", res.Bytes),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return res.fail(err)
	}

	log.Info("Print job sent",
		zap.Int("bytes", res.Bytes),
		zap.Duration("elapsed", time.Since(start)),
	)
	res.Success = true
	return res
}
