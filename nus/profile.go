// Package nus resolves the Nordic UART Service on a connected peer.
package nus

import (
	"context"
	"time"

	"github.com/alwint3r/bluest-nordic-uart-service/internal/device"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	ServiceUUID = "6e400001-b5a3-f393-e0a9-e50e24dcca9e"
	RXUUID      = "6e400002-b5a3-f393-e0a9-e50e24dcca9e" // write target
	TXUUID      = "6e400003-b5a3-f393-e0a9-e50e24dcca9e" // notify source

	DefaultPayload = "Hello from Rust!"
	UplinkInterval = 10 * time.Second
)

// Profile holds the resolved NUS handles. RX and TX are never the same characteristic.
type Profile struct {
	Service device.Service
	RX      device.Characteristic
	TX      device.Characteristic
}

// Resolve discovers the NUS service and its RX/TX characteristics on peer.
//
// Returns device.ErrNotConnected when the peer is already gone,
// device.ErrDiscoveryFailed on transport errors and
// device.ErrProfileUnsupported (wrapping *device.NotFoundError) when any of
// the three UUIDs is missing.
func Resolve(ctx context.Context, peer device.Peer) (*Profile, error) {
	if !peer.IsConnected() {
		return nil, device.ErrNotConnected
	}

	services, err := peer.DiscoverServices(ctx)
	if err != nil {
		return nil, device.Wrap(device.KindDiscoveryFailed, err, "discover services on %s", peer.Address())
	}

	svc, ok := newCatalog(services, device.Service.UUID).lookup(ServiceUUID)
	if !ok {
		return nil, device.Wrap(device.KindProfileUnsupported,
			&device.NotFoundError{Resource: "service", UUIDs: []string{ServiceUUID}},
			"peer %s", peer.Address())
	}

	chars, err := svc.DiscoverCharacteristics(ctx)
	if err != nil {
		return nil, device.Wrap(device.KindDiscoveryFailed, err, "discover characteristics of %s", device.ShortenUUID(ServiceUUID))
	}

	cat := newCatalog(chars, device.Characteristic.UUID)
	rx, ok := cat.lookup(RXUUID)
	if !ok {
		return nil, missingCharacteristic(peer, RXUUID)
	}
	tx, ok := cat.lookup(TXUUID)
	if !ok {
		return nil, missingCharacteristic(peer, TXUUID)
	}

	return &Profile{Service: svc, RX: rx, TX: tx}, nil
}

func missingCharacteristic(peer device.Peer, uuid string) error {
	return device.Wrap(device.KindProfileUnsupported,
		&device.NotFoundError{Resource: "characteristic", UUIDs: []string{ServiceUUID, uuid}},
		"peer %s", peer.Address())
}

// catalog indexes discovered items by normalized UUID in discovery order.
// The first item seen for a UUID wins.
type catalog[V any] struct {
	items *orderedmap.OrderedMap[string, V]
}

func newCatalog[V any](items []V, uuidOf func(V) string) *catalog[V] {
	c := &catalog[V]{items: orderedmap.New[string, V]()}
	for _, item := range items {
		key := device.NormalizeUUID(uuidOf(item))
		if key == "" {
			continue
		}
		if _, exists := c.items.Get(key); !exists {
			c.items.Set(key, item)
		}
	}
	return c
}

func (c *catalog[V]) lookup(uuid string) (V, bool) {
	return c.items.Get(device.NormalizeUUID(uuid))
}
