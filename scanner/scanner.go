package scanner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alwint3r/bluest-nordic-uart-service/internal/device"
	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
)

// UnnamedDevice is the display name of a peripheral that advertised no local name.
// It is never compared against a target name.
const UnnamedDevice = "<Name N/A>"

// ProgressCallback is called when the scan phase changes
type ProgressCallback func(phase string)

// ScanOptions configures a name search
type ScanOptions struct {
	// Timeout bounds the scan window; zero scans until a match or cancellation.
	Timeout time.Duration
}

// DefaultScanOptions returns default scanning options
func DefaultScanOptions() *ScanOptions {
	return &ScanOptions{}
}

// ResolveName returns the advertised local name. Nameless advertisements
// resolve to UnnamedDevice with ok=false.
func ResolveName(adv device.Advertisement) (name string, ok bool) {
	name = adv.LocalName()
	if name == "" {
		return UnnamedDevice, false
	}
	return name, true
}

// Scanner finds a peripheral by advertised name
type Scanner struct {
	logger *logrus.Logger
	seen   *hashmap.Map[string, string]
}

// NewScanner creates a new BLE scanner
func NewScanner(logger *logrus.Logger) *Scanner {
	if logger == nil {
		logger = logrus.New()
	}
	return &Scanner{
		logger: logger,
		seen:   hashmap.New[string, string](),
	}
}

// FindByName scans until an advertisement whose local name equals target
// exactly, then stops the scan and returns it. Advertisements delivered after
// the match are not inspected.
//
// Returns (nil, false, nil) when the scan ends or the scan window elapses
// without a match, and the context error when ctx is cancelled.
func (s *Scanner) FindByName(ctx context.Context, adapter device.Adapter, target string, opts *ScanOptions, progress ProgressCallback) (device.Advertisement, bool, error) {
	if opts == nil {
		opts = DefaultScanOptions()
	}
	if progress == nil {
		progress = func(string) {}
	}

	s.seen = hashmap.New[string, string]()

	var (
		scanCtx context.Context
		cancel  context.CancelFunc
	)
	if opts.Timeout > 0 {
		scanCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
	} else {
		scanCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	var (
		mu    sync.Mutex
		match device.Advertisement
	)

	s.logger.WithFields(logrus.Fields{
		"target":  target,
		"timeout": opts.Timeout,
	}).Info("Starting BLE scan...")
	progress("Scanning")

	err := adapter.Scan(scanCtx, func(adv device.Advertisement) {
		mu.Lock()
		defer mu.Unlock()

		if match != nil {
			return
		}

		name, ok := ResolveName(adv)
		s.track(adv, name)
		if !ok || name != target {
			return
		}

		match = adv
		cancel()
	})

	mu.Lock()
	found := match
	mu.Unlock()

	s.logger.WithField("device_count", s.seen.Len()).Info("BLE scan completed")

	if found != nil {
		progress("Matched")
		s.logger.WithFields(logrus.Fields{
			"device":  target,
			"address": found.Addr(),
		}).Info("Found matching device")
		return found, true, nil
	}

	if ctx.Err() != nil {
		return nil, false, ctx.Err()
	}

	if err != nil {
		if errors.Is(err, device.ErrAdapterUnavailable) {
			return nil, false, err
		}
		return nil, false, device.Wrap(device.KindScanFailed, err, "scan for %q", target)
	}

	return nil, false, nil
}

// track records the advertiser's address, logging each new device once
func (s *Scanner) track(adv device.Advertisement, name string) {
	addr := adv.Addr()
	if _, existing := s.seen.GetOrInsert(addr, name); existing {
		return
	}

	s.logger.WithFields(logrus.Fields{
		"device":  name,
		"address": addr,
		"rssi":    adv.RSSI(),
	}).Debug("Discovered new device")
}

// SeenCount returns the number of distinct advertisers seen by the last scan
func (s *Scanner) SeenCount() int {
	return s.seen.Len()
}
