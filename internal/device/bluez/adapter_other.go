//go:build !linux

package bluez

import (
	"context"
	"runtime"

	"github.com/alwint3r/bluest-nordic-uart-service/internal/device"
	"github.com/sirupsen/logrus"
)

// Adapter is unavailable outside Linux; every call fails with device.ErrUnsupported.
type Adapter struct {
	logger *logrus.Logger
}

func NewAdapter(logger *logrus.Logger) *Adapter {
	return &Adapter{logger: logger}
}

func (a *Adapter) unsupported() error {
	return device.Wrap(device.KindAdapterUnavailable, device.ErrUnsupported, "bluez backend on %s", runtime.GOOS)
}

func (a *Adapter) WaitAvailable(context.Context) error {
	return a.unsupported()
}

func (a *Adapter) Scan(context.Context, func(device.Advertisement)) error {
	return a.unsupported()
}

func (a *Adapter) Connect(context.Context, device.Advertisement) (device.Peer, error) {
	return nil, a.unsupported()
}

func (a *Adapter) Disconnect(device.Peer) error {
	return a.unsupported()
}
