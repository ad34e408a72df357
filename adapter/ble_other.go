//go:build !linux

package adapter

import "errors"

func openDefaultDevice() error {
	return errors.New("bluetooth low energy needs a linux hci device")
}
