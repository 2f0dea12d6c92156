package goble

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/alwint3r/bluest-nordic-uart-service/internal/device"
	"github.com/sirupsen/logrus"
)

// Adapter implements device.Adapter on top of github.com/go-ble/ble.
// The underlying ble.Device is created lazily by WaitAvailable so that
// constructing an Adapter never touches the radio.
type Adapter struct {
	logger *logrus.Logger

	mu   sync.Mutex
	host host
}

// NewAdapter creates a go-ble backed adapter
func NewAdapter(logger *logrus.Logger) *Adapter {
	if logger == nil {
		logger = logrus.New()
	}
	return &Adapter{logger: logger}
}

// WaitAvailable opens the HCI/CoreBluetooth device. Opening fails when the
// radio is missing or powered off.
func (a *Adapter) WaitAvailable(ctx context.Context) error {
	_, err := a.acquire(ctx)
	return err
}

func (a *Adapter) acquire(ctx context.Context) (host, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.host != nil {
		return a.host, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.logger.Debug("Opening go-ble device...")
	h, err := newHost()
	if err != nil {
		a.logger.WithField("error", err).Debug("Failed to open go-ble device")
		return nil, device.Wrap(device.KindAdapterUnavailable, device.NormalizeError(err), "open go-ble device")
	}
	a.host = h
	return h, nil
}

// Scan runs an unfiltered scan with duplicates until ctx is done
func (a *Adapter) Scan(ctx context.Context, handler func(device.Advertisement)) error {
	h, err := a.acquire(ctx)
	if err != nil {
		return err
	}

	err = h.Scan(ctx, true, func(adv advSource) {
		handler(newBLEAdvertisement(adv))
	})
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return device.NormalizeError(err)
}

// Connect dials the advertised address. go-ble has no connect timeout of its
// own; ctx bounds the dial.
func (a *Adapter) Connect(ctx context.Context, adv device.Advertisement) (device.Peer, error) {
	h, err := a.acquire(ctx)
	if err != nil {
		return nil, err
	}

	addr := adv.Addr()
	if addr == "" {
		return nil, fmt.Errorf("advertisement %q has no address", adv.LocalName())
	}

	a.logger.WithField("address", addr).Debug("Dialing BLE device...")
	client, err := h.Dial(ctx, addr)
	if err != nil {
		a.logger.WithFields(logrus.Fields{
			"address": addr,
			"error":   err,
		}).Debug("Failed to dial BLE device")
		return nil, device.NormalizeError(err)
	}

	return newBLEPeer(client, addr, adv.LocalName(), a.logger), nil
}

// Disconnect cancels the connection. A peer that is already gone is not an error.
func (a *Adapter) Disconnect(peer device.Peer) error {
	p, ok := peer.(*BLEPeer)
	if !ok {
		return fmt.Errorf("go-ble: foreign peer %T", peer)
	}
	return p.cancel()
}
