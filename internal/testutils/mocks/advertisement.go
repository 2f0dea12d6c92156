package mocks

import (
	"github.com/stretchr/testify/mock"
)

// MockAdvertisement is a testify mock of device.Advertisement
type MockAdvertisement struct {
	mock.Mock
}

func (m *MockAdvertisement) LocalName() string {
	return m.Called().String(0)
}

func (m *MockAdvertisement) Addr() string {
	return m.Called().String(0)
}

func (m *MockAdvertisement) RSSI() int {
	return m.Called().Int(0)
}

func (m *MockAdvertisement) Connectable() bool {
	return m.Called().Bool(0)
}
