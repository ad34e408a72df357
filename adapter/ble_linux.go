//go:build linux

package adapter

import (
	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
)

func openDefaultDevice() error {
	d, err := linux.NewDevice()
	if err != nil {
		return err
	}
	ble.SetDefaultDevice(d)
	return nil
}
