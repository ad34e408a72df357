// Package config loads settings from flags, the environment, a .env file and
// an optional config file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. POSPRINT_HTTP_ADDRESS
const EnvPrefix = "POSPRINT"

type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Relay     RelayConfig     `mapstructure:"relay"`
	Bluetooth BluetoothConfig `mapstructure:"bluetooth"`
	TCP       TCPConfig       `mapstructure:"tcp"`
	Printer   PrinterConfig   `mapstructure:"printer"`
	Image     ImageConfig     `mapstructure:"image"`
	Log       LogConfig       `mapstructure:"log"`
}

type HTTPConfig struct {
	Address string `mapstructure:"address"`
	// CORSOrigins lists the POS front ends allowed to call the API
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type RelayConfig struct {
	Address string `mapstructure:"address"`
	Enabled bool   `mapstructure:"enabled"`
}

// BluetoothConfig selects and tunes the Bluetooth driver
type BluetoothConfig struct {
	// Mode is "ble" or "classic"
	Mode        string        `mapstructure:"mode"`
	ScanTimeout time.Duration `mapstructure:"scan_timeout"`
	MTU         int           `mapstructure:"mtu"`
	ChunkDelay  time.Duration `mapstructure:"chunk_delay"`
	// Bindings map classic printer MACs to RFCOMM ports, "MAC=/dev/rfcomm0"
	Bindings []string `mapstructure:"bindings"`
	Baud     int      `mapstructure:"baud"`
}

type TCPConfig struct {
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type PrinterConfig struct {
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// QRMode is "native" for GS ( k or "raster" for host-rendered symbols
	QRMode       string        `mapstructure:"qr_mode"`
	QRModuleSize int           `mapstructure:"qr_module_size"`
	QRLevel      string        `mapstructure:"qr_level"`
	SettleDelay  time.Duration `mapstructure:"settle_delay"`
	// Paper is the default paper class when a request names none
	Paper string `mapstructure:"paper"`
}

type ImageConfig struct {
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Debug bool   `mapstructure:"debug"`
}

var defaults = map[string]any{
	"http.address":           ":8080",
	"http.cors_origins":      []string{},
	"relay.address":          "localhost:9100",
	"relay.enabled":          true,
	"bluetooth.mode":         "ble",
	"bluetooth.scan_timeout": 10 * time.Second,
	"bluetooth.mtu":          100,
	"bluetooth.chunk_delay":  20 * time.Millisecond,
	"bluetooth.bindings":     []string{},
	"bluetooth.baud":         9600,
	"tcp.dial_timeout":       5 * time.Second,
	"tcp.write_timeout":      10 * time.Second,
	"printer.write_timeout":  30 * time.Second,
	"printer.qr_mode":        "native",
	"printer.qr_module_size": 6,
	"printer.qr_level":       "M",
	"printer.settle_delay":   500 * time.Millisecond,
	"printer.paper":          "58",
	"image.fetch_timeout":    10 * time.Second,
	"log.file":               "",
	"log.debug":              false,
}

// Load reads configuration for the command line args (without the program
// name). Precedence is flags, environment, config file, defaults. A .env file
// in the working directory is loaded into the environment first when present.
func Load(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	flags := pflag.NewFlagSet("posprint", pflag.ContinueOnError)
	configFile := flags.String("config", "", "path to a config file (yaml, json or toml)")
	flags.String("http", defaults["http.address"].(string), "HTTP API listen address")
	flags.String("relay", defaults["relay.address"].(string), "raw print relay listen address")
	flags.Bool("debug", false, "enable debug logging")
	if err := flags.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parsing flags: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bind := map[string]string{"http.address": "http", "relay.address": "relay", "log.debug": "debug"}
	for key, flag := range bind {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return Config{}, fmt.Errorf("binding flag %s: %w", flag, err)
		}
	}

	if path := firstNonEmpty(*configFile, os.Getenv(EnvPrefix+"_CONFIG")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with
func (c Config) Validate() error {
	var errs []error
	switch c.Bluetooth.Mode {
	case "ble", "classic":
	default:
		errs = append(errs, fmt.Errorf("bluetooth.mode must be ble or classic, got %q", c.Bluetooth.Mode))
	}
	switch c.Printer.QRMode {
	case "native", "raster":
	default:
		errs = append(errs, fmt.Errorf("printer.qr_mode must be native or raster, got %q", c.Printer.QRMode))
	}
	if c.Bluetooth.MTU <= 0 {
		errs = append(errs, fmt.Errorf("bluetooth.mtu must be positive"))
	}
	if c.HTTP.Address == "" {
		errs = append(errs, fmt.Errorf("http.address is required"))
	}
	if c.Relay.Enabled && c.Relay.Address == "" {
		errs = append(errs, fmt.Errorf("relay.address is required when the relay is enabled"))
	}
	return errors.Join(errs...)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
