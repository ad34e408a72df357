package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, "localhost:9100", cfg.Relay.Address)
	assert.True(t, cfg.Relay.Enabled)
	assert.Equal(t, "ble", cfg.Bluetooth.Mode)
	assert.Equal(t, 10*time.Second, cfg.Bluetooth.ScanTimeout)
	assert.Equal(t, 100, cfg.Bluetooth.MTU)
	assert.Equal(t, 20*time.Millisecond, cfg.Bluetooth.ChunkDelay)
	assert.Equal(t, 9600, cfg.Bluetooth.Baud)
	assert.Equal(t, 5*time.Second, cfg.TCP.DialTimeout)
	assert.Equal(t, 10*time.Second, cfg.TCP.WriteTimeout)
	assert.Equal(t, 30*time.Second, cfg.Printer.WriteTimeout)
	assert.Equal(t, "native", cfg.Printer.QRMode)
	assert.Equal(t, 6, cfg.Printer.QRModuleSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Printer.SettleDelay)
	assert.Equal(t, 10*time.Second, cfg.Image.FetchTimeout)
	assert.False(t, cfg.Log.Debug)
}

func TestLoadEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("POSPRINT_BLUETOOTH_MODE", "classic")
	t.Setenv("POSPRINT_BLUETOOTH_BINDINGS", "AA:BB:CC:DD:EE:FF=/dev/rfcomm0,11:22:33:44:55:66=/dev/rfcomm1")
	t.Setenv("POSPRINT_PRINTER_WRITE_TIMEOUT", "45s")
	t.Setenv("POSPRINT_RELAY_ENABLED", "false")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "classic", cfg.Bluetooth.Mode)
	assert.Equal(t, []string{"AA:BB:CC:DD:EE:FF=/dev/rfcomm0", "11:22:33:44:55:66=/dev/rfcomm1"}, cfg.Bluetooth.Bindings)
	assert.Equal(t, 45*time.Second, cfg.Printer.WriteTimeout)
	assert.False(t, cfg.Relay.Enabled)
}

func TestLoadFlagsOverrideEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("POSPRINT_HTTP_ADDRESS", ":9000")

	cfg, err := Load([]string{"--http", "127.0.0.1:8181", "--relay", ":9101", "--debug"})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8181", cfg.HTTP.Address)
	assert.Equal(t, ":9101", cfg.Relay.Address)
	assert.True(t, cfg.Log.Debug)

	cfg, err = Load(nil)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTP.Address)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "posprint.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bluetooth:
  mtu: 180
  chunk_delay: 5ms
printer:
  qr_mode: raster
  qr_level: Q
  paper: "80"
`), 0o644))

	cfg, err := Load([]string{"--config", path})
	require.NoError(t, err)
	assert.Equal(t, 180, cfg.Bluetooth.MTU)
	assert.Equal(t, 5*time.Millisecond, cfg.Bluetooth.ChunkDelay)
	assert.Equal(t, "raster", cfg.Printer.QRMode)
	assert.Equal(t, "Q", cfg.Printer.QRLevel)
	assert.Equal(t, "80", cfg.Printer.Paper)

	_, err = Load([]string{"--config", filepath.Join(dir, "missing.yaml")})
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("POSPRINT_TCP_DIAL_TIMEOUT=2s\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("POSPRINT_TCP_DIAL_TIMEOUT") })

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.TCP.DialTimeout)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("POSPRINT_BLUETOOTH_MODE", "infrared")
	t.Setenv("POSPRINT_PRINTER_QR_MODE", "ascii")

	_, err := Load(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bluetooth.mode")
	assert.Contains(t, err.Error(), "printer.qr_mode")
}

func TestLoadUnknownFlag(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load([]string{"--nope"})
	assert.Error(t, err)
}
