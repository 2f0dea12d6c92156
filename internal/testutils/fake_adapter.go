package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/alwint3r/bluest-nordic-uart-service/internal/device"
)

// FakeAdapter is an in-memory device.Adapter. Scan replays the configured
// advertisements in order and then either ends (EndScan) or keeps the scan
// open until its context is done, like a real radio.
type FakeAdapter struct {
	mu sync.Mutex

	ads     []device.Advertisement
	peer    *FakePeer
	endScan bool

	waitErr       error
	scanErr       error
	connectErr    error
	disconnectErr error

	waitCalls   int
	scanCalls   int
	connected   []device.Advertisement
	disconnects int
}

// NewFakeAdapter creates an adapter that scans ads and connects to peer
func NewFakeAdapter(peer *FakePeer, ads ...device.Advertisement) *FakeAdapter {
	return &FakeAdapter{peer: peer, ads: ads}
}

// WithEndScan makes Scan return after the last advertisement instead of blocking
func (a *FakeAdapter) WithEndScan() *FakeAdapter {
	a.endScan = true
	return a
}

// WithWaitError makes WaitAvailable fail
func (a *FakeAdapter) WithWaitError(err error) *FakeAdapter {
	a.waitErr = err
	return a
}

// WithScanError makes Scan fail after replaying the advertisements
func (a *FakeAdapter) WithScanError(err error) *FakeAdapter {
	a.scanErr = err
	return a
}

// WithConnectError makes Connect fail
func (a *FakeAdapter) WithConnectError(err error) *FakeAdapter {
	a.connectErr = err
	return a
}

// WithDisconnectError makes Disconnect fail (the link is still dropped)
func (a *FakeAdapter) WithDisconnectError(err error) *FakeAdapter {
	a.disconnectErr = err
	return a
}

func (a *FakeAdapter) WaitAvailable(ctx context.Context) error {
	a.mu.Lock()
	a.waitCalls++
	err := a.waitErr
	a.mu.Unlock()

	if err != nil {
		return err
	}
	return ctx.Err()
}

func (a *FakeAdapter) Scan(ctx context.Context, handler func(device.Advertisement)) error {
	a.mu.Lock()
	a.scanCalls++
	ads := append([]device.Advertisement(nil), a.ads...)
	endScan, scanErr := a.endScan, a.scanErr
	a.mu.Unlock()

	for _, adv := range ads {
		if ctx.Err() != nil {
			return nil
		}
		handler(adv)
	}
	if scanErr != nil {
		return scanErr
	}
	if !endScan {
		<-ctx.Done()
	}
	return nil
}

func (a *FakeAdapter) Connect(ctx context.Context, adv device.Advertisement) (device.Peer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.connected = append(a.connected, adv)
	if a.connectErr != nil {
		return nil, a.connectErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.peer == nil {
		return nil, errors.New("fake adapter: no peripheral configured")
	}

	a.peer.setIdentity(adv.Addr(), adv.LocalName())
	return a.peer, nil
}

func (a *FakeAdapter) Disconnect(peer device.Peer) error {
	a.mu.Lock()
	a.disconnects++
	err := a.disconnectErr
	a.mu.Unlock()

	if fp, ok := peer.(*FakePeer); ok {
		fp.Drop()
	}
	return err
}

// ConnectCalls returns the advertisements passed to Connect
func (a *FakeAdapter) ConnectCalls() []device.Advertisement {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]device.Advertisement(nil), a.connected...)
}

// DisconnectCalls returns how many times Disconnect was called
func (a *FakeAdapter) DisconnectCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.disconnects
}

// ScanCalls returns how many times Scan was called
func (a *FakeAdapter) ScanCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scanCalls
}
