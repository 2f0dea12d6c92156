package goble

import (
	"github.com/alwint3r/bluest-nordic-uart-service/internal/device"
)

// BLEAdvertisement wraps a go-ble advertisement to implement device.Advertisement
type BLEAdvertisement struct {
	adv advSource
}

func newBLEAdvertisement(adv advSource) device.Advertisement {
	return &BLEAdvertisement{adv: adv}
}

func (a *BLEAdvertisement) LocalName() string { return a.adv.LocalName() }
func (a *BLEAdvertisement) Connectable() bool { return a.adv.Connectable() }
func (a *BLEAdvertisement) RSSI() int         { return a.adv.RSSI() }

func (a *BLEAdvertisement) Addr() string {
	if a.adv.Addr() == nil {
		return ""
	}
	return a.adv.Addr().String()
}
