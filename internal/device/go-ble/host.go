package goble

import (
	"context"

	"github.com/go-ble/ble"
)

// advSource is the part of ble.Advertisement the backend reads.
type advSource interface {
	LocalName() string
	RSSI() int
	Connectable() bool
	Addr() ble.Addr
}

// gattClient is the part of ble.Client used by a connected peer.
type gattClient interface {
	DiscoverServices(filter []ble.UUID) ([]*ble.Service, error)
	DiscoverCharacteristics(filter []ble.UUID, s *ble.Service) ([]*ble.Characteristic, error)
	DiscoverDescriptors(filter []ble.UUID, c *ble.Characteristic) ([]*ble.Descriptor, error)
	WriteCharacteristic(c *ble.Characteristic, value []byte, noRsp bool) error
	Subscribe(c *ble.Characteristic, ind bool, h ble.NotificationHandler) error
	Unsubscribe(c *ble.Characteristic, ind bool) error
	CancelConnection() error
	Disconnected() <-chan struct{}
}

// host is the radio as seen by Adapter. bleHost backs it with a ble.Device;
// tests supply their own.
type host interface {
	Scan(ctx context.Context, allowDup bool, h func(advSource)) error
	Dial(ctx context.Context, addr string) (gattClient, error)
}

type bleHost struct {
	dev ble.Device
}

// Scan wraps the raw ble.Device.Scan to hand advertisements over as advSource
func (h *bleHost) Scan(ctx context.Context, allowDup bool, handler func(advSource)) error {
	return h.dev.Scan(ctx, allowDup, func(adv ble.Advertisement) {
		handler(adv)
	})
}

func (h *bleHost) Dial(ctx context.Context, addr string) (gattClient, error) {
	client, err := h.dev.Dial(ctx, ble.NewAddr(addr))
	if err != nil {
		return nil, err
	}
	return client, nil
}

// newHost creates the radio handle; a variable so tests can replace it.
var newHost = func() (host, error) {
	dev, err := DeviceFactory()
	if err != nil {
		return nil, err
	}
	return &bleHost{dev: dev}, nil
}
