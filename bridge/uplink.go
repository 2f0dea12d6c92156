package bridge

import (
	"context"
	"time"

	"github.com/alwint3r/bluest-nordic-uart-service/internal/device"
	"github.com/alwint3r/bluest-nordic-uart-service/internal/groutine"
	"github.com/alwint3r/bluest-nordic-uart-service/nus"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// DefaultMaxConsecutiveFailures stops the uplink after this many failed writes in a row
const DefaultMaxConsecutiveFailures = 3

// UplinkOptions configures the periodic writer
type UplinkOptions struct {
	Payload  []byte
	Interval time.Duration // zero means nus.UplinkInterval

	// MaxConsecutiveFailures stops the loop after N failed writes in a row; 0 never stops.
	MaxConsecutiveFailures int

	Clock clockwork.Clock
}

// UplinkStats counts write attempts
type UplinkStats struct {
	Attempts int
	Failures int
}

// Uplink writes a fixed payload to RX on entry and then on every tick
type Uplink struct {
	rx       device.CharacteristicWriter
	opts     UplinkOptions
	logger   *logrus.Logger
	observer Observer
}

// NewUplink creates an uplink loop writing to rx
func NewUplink(rx device.CharacteristicWriter, opts UplinkOptions, logger *logrus.Logger, observer Observer) *Uplink {
	if opts.Payload == nil {
		opts.Payload = []byte(nus.DefaultPayload)
	}
	if opts.Interval <= 0 {
		opts.Interval = nus.UplinkInterval
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = logrus.New()
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &Uplink{rx: rx, opts: opts, logger: logger, observer: observer}
}

// Run writes until ctx is done. It returns a non-nil error only when the
// consecutive failure limit was reached.
func (u *Uplink) Run(ctx context.Context) (UplinkStats, error) {
	var (
		stats       UplinkStats
		consecutive int
	)

	log := logrus.NewEntry(u.logger)
	if name := groutine.GetName(ctx); name != "" {
		log = log.WithField("goroutine", name)
	}

	ticker := u.opts.Clock.NewTicker(u.opts.Interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return stats, nil
		}

		stats.Attempts++
		err := u.rx.WriteWithoutResponse(u.opts.Payload)
		if err != nil {
			err = device.Wrap(device.KindWriteFailed, device.NormalizeError(err), "write %d bytes to RX", len(u.opts.Payload))
			stats.Failures++
			consecutive++
			log.WithError(err).WithField("consecutive", consecutive).Warn("Uplink write failed")
		} else {
			consecutive = 0
			log.WithField("bytes", len(u.opts.Payload)).Debug("Uplink write")
		}
		u.observer.OnWrite(u.opts.Payload, err)

		if err != nil && u.opts.MaxConsecutiveFailures > 0 && consecutive >= u.opts.MaxConsecutiveFailures {
			log.WithField("failures", consecutive).Error("Uplink stopped after consecutive write failures")
			return stats, err
		}

		select {
		case <-ctx.Done():
			return stats, nil
		case <-ticker.Chan():
		}
	}
}
