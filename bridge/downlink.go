package bridge

import (
	"unicode/utf8"

	"github.com/alwint3r/bluest-nordic-uart-service/internal/device"
	"github.com/sirupsen/logrus"
)

// DownlinkStats counts consumed notifications
type DownlinkStats struct {
	Received int
	Skipped  int
}

// Downlink reports TX notifications as text
type Downlink struct {
	logger   *logrus.Logger
	observer Observer
}

// NewDownlink creates a downlink reader
func NewDownlink(logger *logrus.Logger, observer Observer) *Downlink {
	if logger == nil {
		logger = logrus.New()
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &Downlink{logger: logger, observer: observer}
}

// Run consumes stream until it is closed. Items that carry an error or are
// not valid UTF-8 are reported as skipped and never end the loop.
func (d *Downlink) Run(stream <-chan device.Notification) DownlinkStats {
	var stats DownlinkStats

	for n := range stream {
		text, err := decode(n)
		if err != nil {
			stats.Skipped++
			d.logger.WithError(err).Warn("Skipping notification")
			d.observer.OnSkipped(err)
			continue
		}

		stats.Received++
		d.logger.WithField("bytes", len(n.Data)).Debug("Downlink notification")
		d.observer.OnRead(text)
	}

	d.logger.WithFields(logrus.Fields{
		"received": stats.Received,
		"skipped":  stats.Skipped,
	}).Debug("Notification stream ended")
	return stats
}

func decode(n device.Notification) (string, error) {
	if n.Err != nil {
		return "", device.Wrap(device.KindNotifyDecode, n.Err, "notification")
	}
	if !utf8.Valid(n.Data) {
		return "", device.Wrap(device.KindNotifyDecode, nil, "%d bytes are not valid UTF-8", len(n.Data))
	}
	return string(n.Data), nil
}
