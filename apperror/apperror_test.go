package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := New(ConnectionFailed, "tcp.connect", errors.New("refused"))
	assert.Equal(t, "tcp.connect: ConnectionFailed: refused", err.Error())

	assert.Equal(t, "DeviceNotFound", New(DeviceNotFound, "", nil).Error())
	assert.Equal(t, "ble.scan: DeviceNotFound", New(DeviceNotFound, "ble.scan", nil).Error())
}

func TestKindOfWrapped(t *testing.T) {
	base := New(WriteFailed, "ble.write", errors.New("gatt"))
	wrapped := fmt.Errorf("print receipt: %w", base)

	assert.Equal(t, WriteFailed, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, WriteFailed))
	assert.False(t, IsKind(wrapped, ConnectionFailed))
	assert.Equal(t, Unknown, KindOf(errors.New("plain")))
	assert.False(t, IsKind(nil, Unknown))
}

func TestErrorsIsByKind(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(DeviceNotFound, "scan", nil))
	assert.True(t, errors.Is(err, New(DeviceNotFound, "", nil)))
	assert.False(t, errors.Is(err, New(UnsupportedDevice, "", nil)))
}

func TestHTTPStatus(t *testing.T) {
	testCases := []struct {
		kind Kind
		code int
	}{
		{TransportUnavailable, http.StatusServiceUnavailable},
		{DeviceNotFound, http.StatusNotFound},
		{ConnectionFailed, http.StatusBadGateway},
		{WriteFailed, http.StatusBadGateway},
		{UnsupportedDevice, http.StatusUnprocessableEntity},
		{NotConnected, http.StatusConflict},
		{Unknown, http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			assert.Equal(t, tc.code, tc.kind.HTTPStatus())
		})
	}
}
