package adapter

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nixxel-company-limited/posprint/config"
)

// Drivers is the set of transports available to the connection manager
type Drivers []Driver

// NewDrivers builds one driver per transport. bluetooth.mode picks whether
// Bluetooth addresses are served over LE or over classic RFCOMM bindings.
func NewDrivers(cfg config.Config, logger *zap.Logger) (Drivers, error) {
	var bt Driver
	switch cfg.Bluetooth.Mode {
	case "classic":
		bindings, err := ParseBindings(cfg.Bluetooth.Bindings)
		if err != nil {
			return nil, err
		}
		bt = NewClassicDriver(NewSerialPlugin(bindings, cfg.Bluetooth.Baud), logger)
	default:
		bt = NewBLEDriver(BLEConfig{
			ScanTimeout: cfg.Bluetooth.ScanTimeout,
			MTU:         cfg.Bluetooth.MTU,
			ChunkDelay:  cfg.Bluetooth.ChunkDelay,
		}, logger)
	}

	return Drivers{
		bt,
		NewTCPDriver(TCPConfig{
			DialTimeout:  cfg.TCP.DialTimeout,
			WriteTimeout: cfg.TCP.WriteTimeout,
		}, logger),
		NewInternalDriver(USBOpener(logger), logger),
	}, nil
}

func Module() fx.Option {
	return fx.Module(
		"adapter",
		fx.Provide(NewDrivers),
	)
}
