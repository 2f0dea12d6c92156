package testutils

import (
	"time"

	"github.com/alwint3r/bluest-nordic-uart-service/internal/device"
	"github.com/alwint3r/bluest-nordic-uart-service/internal/devicefactory"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

// MockBLEPeripheralSuite provides a reusable test suite backed by a FakeAdapter.
//
// The suite registers the fake under every devicefactory backend name for the
// duration of each test, so code that builds its adapter through
// devicefactory.NewAdapter talks to the fake.
//
// Basic usage (NUS peripheral, advertisements "Tag-00" and "Tag-01"):
//
//	type SessionSuite struct {
//	    testutils.MockBLEPeripheralSuite
//	}
//
//	func TestSessionSuite(t *testing.T) {
//	    suite.Run(t, new(SessionSuite))
//	}
//
// Custom configuration:
//
//	func (s *SessionSuite) SetupTest() {
//	    s.WithPeripheral().
//	        WithService("6e400001-b5a3-f393-e0a9-e50e24dcca9e").
//	        WithCharacteristic("6e400002-b5a3-f393-e0a9-e50e24dcca9e", "write-without-response")
//	    s.WithAdvertisements().WithNames("", "Tag-01")
//
//	    s.MockBLEPeripheralSuite.SetupTest() // Call parent last to apply configuration
//	}
type MockBLEPeripheralSuite struct {
	suite.Suite

	Helper      *TestHelper
	Logger      *logrus.Logger
	TestTimeout time.Duration

	PeripheralBuilder     *PeripheralDeviceBuilder
	AdvertisementsBuilder *AdvertisementArrayBuilder[[]device.Advertisement]

	// Built in SetupTest
	Adapter *FakeAdapter
	Peer    *FakePeer

	originalBackends map[string]devicefactory.AdapterFactory
}

// SetupSuite initializes the test suite. Called once before all tests in the suite.
func (s *MockBLEPeripheralSuite) SetupSuite() {
	s.Helper = NewTestHelper(s.T())
	s.Logger = s.Helper.Logger
	s.TestTimeout = 5 * time.Second
}

// SetupTest builds the fake adapter before each test.
func (s *MockBLEPeripheralSuite) SetupTest() {
	if s.PeripheralBuilder == nil {
		s.PeripheralBuilder = NewPeripheralDeviceBuilder().FromJSON(NUSProfileJSON)
	}
	if s.AdvertisementsBuilder == nil {
		s.AdvertisementsBuilder = NewAdvertisementArrayBuilder[[]device.Advertisement]().WithNames("Tag-00", "Tag-01")
	}

	s.Peer = s.PeripheralBuilder.Build()
	s.Adapter = NewFakeAdapter(s.Peer, s.AdvertisementsBuilder.Build()...)

	// Nested SetupTest calls (subtests) keep the real backends saved by the outer one
	if s.originalBackends == nil {
		s.originalBackends = devicefactory.Backends
	}
	fake := func(*logrus.Logger) device.Adapter { return s.Adapter }
	backends := make(map[string]devicefactory.AdapterFactory, len(s.originalBackends))
	for name := range s.originalBackends {
		backends[name] = fake
	}
	devicefactory.Backends = backends

	s.Logger.Debug("Test setup completed - ready for execution")
}

// TearDownTest restores the backends and resets the builders.
func (s *MockBLEPeripheralSuite) TearDownTest() {
	if s.originalBackends != nil {
		devicefactory.Backends = s.originalBackends
		s.originalBackends = nil
	}
	if s.Peer != nil {
		s.Peer.Drop()
	}

	s.PeripheralBuilder = nil
	s.AdvertisementsBuilder = nil
	s.Adapter = nil
	s.Peer = nil
}

// WithPeripheral returns the peripheral builder for fluent configuration.
func (s *MockBLEPeripheralSuite) WithPeripheral() *PeripheralDeviceBuilder {
	if s.PeripheralBuilder == nil {
		s.PeripheralBuilder = NewPeripheralDeviceBuilder()
	}
	return s.PeripheralBuilder
}

// WithAdvertisements returns the advertisement array builder for the scan stream.
func (s *MockBLEPeripheralSuite) WithAdvertisements() *AdvertisementArrayBuilder[[]device.Advertisement] {
	if s.AdvertisementsBuilder == nil {
		s.AdvertisementsBuilder = NewAdvertisementArrayBuilder[[]device.Advertisement]()
	}
	return s.AdvertisementsBuilder
}

// RX returns the fake NUS RX characteristic
func (s *MockBLEPeripheralSuite) RX() *FakeCharacteristic {
	return s.Peer.Characteristic("6e400002-b5a3-f393-e0a9-e50e24dcca9e")
}

// TX returns the fake NUS TX characteristic
func (s *MockBLEPeripheralSuite) TX() *FakeCharacteristic {
	return s.Peer.Characteristic("6e400003-b5a3-f393-e0a9-e50e24dcca9e")
}
