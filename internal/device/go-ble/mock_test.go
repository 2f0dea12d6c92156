package goble

import (
	"context"

	"github.com/go-ble/ble"
	"github.com/stretchr/testify/mock"
)

type fakeAdv struct {
	name string
	addr string
	rssi int
}

func (a fakeAdv) LocalName() string { return a.name }
func (a fakeAdv) RSSI() int         { return a.rssi }
func (a fakeAdv) Connectable() bool { return true }
func (a fakeAdv) Addr() ble.Addr    { return ble.NewAddr(a.addr) }

// fakeHost replays ads then blocks until the scan context is cancelled,
// which is how go-ble devices behave.
type fakeHost struct {
	ads     []advSource
	scanErr error
	client  *mockClient
	dialErr error
	dialed  []string
}

func (h *fakeHost) Scan(ctx context.Context, _ bool, handler func(advSource)) error {
	if h.scanErr != nil {
		return h.scanErr
	}
	for _, adv := range h.ads {
		handler(adv)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (h *fakeHost) Dial(_ context.Context, addr string) (gattClient, error) {
	h.dialed = append(h.dialed, addr)
	if h.dialErr != nil {
		return nil, h.dialErr
	}
	return h.client, nil
}

type mockClient struct {
	mock.Mock
	disconnected chan struct{}
}

func newMockClient() *mockClient {
	return &mockClient{disconnected: make(chan struct{})}
}

func (m *mockClient) DiscoverServices(filter []ble.UUID) ([]*ble.Service, error) {
	args := m.Called(filter)
	svcs, _ := args.Get(0).([]*ble.Service)
	return svcs, args.Error(1)
}

func (m *mockClient) DiscoverCharacteristics(filter []ble.UUID, s *ble.Service) ([]*ble.Characteristic, error) {
	args := m.Called(filter, s)
	chars, _ := args.Get(0).([]*ble.Characteristic)
	return chars, args.Error(1)
}

func (m *mockClient) DiscoverDescriptors(filter []ble.UUID, c *ble.Characteristic) ([]*ble.Descriptor, error) {
	args := m.Called(filter, c)
	descs, _ := args.Get(0).([]*ble.Descriptor)
	return descs, args.Error(1)
}

func (m *mockClient) WriteCharacteristic(c *ble.Characteristic, value []byte, noRsp bool) error {
	return m.Called(c, value, noRsp).Error(0)
}

func (m *mockClient) Subscribe(c *ble.Characteristic, ind bool, h ble.NotificationHandler) error {
	return m.Called(c, ind, h).Error(0)
}

func (m *mockClient) Unsubscribe(c *ble.Characteristic, ind bool) error {
	return m.Called(c, ind).Error(0)
}

func (m *mockClient) CancelConnection() error {
	return m.Called().Error(0)
}

func (m *mockClient) Disconnected() <-chan struct{} {
	return m.disconnected
}
