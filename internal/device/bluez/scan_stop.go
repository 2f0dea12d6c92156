package bluez

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// DefaultScanStopRetry is how often StopScan is retried after the scan context is done.
const DefaultScanStopRetry = 50 * time.Millisecond

// stopScanWhenDone calls stop once ctx is done and retries it until it
// succeeds or scanEnded is closed. StopScan reports "not scanning" when it
// races the start of the scan, and the scan would otherwise run forever.
func stopScanWhenDone(ctx context.Context, scanEnded <-chan struct{}, clock clockwork.Clock, retry time.Duration, stop func() error, logger *logrus.Logger) {
	select {
	case <-scanEnded:
		return
	case <-ctx.Done():
	}

	ticker := clock.NewTicker(retry)
	defer ticker.Stop()

	for {
		err := stop()
		if err == nil {
			return
		}
		logger.WithField("error", err).Debug("StopScan failed, retrying")

		select {
		case <-scanEnded:
			return
		case <-ticker.Chan():
		}
	}
}
