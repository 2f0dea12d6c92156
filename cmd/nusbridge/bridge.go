package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alwint3r/bluest-nordic-uart-service/bridge"
	"github.com/alwint3r/bluest-nordic-uart-service/internal/device"
	"github.com/alwint3r/bluest-nordic-uart-service/internal/devicefactory"
	"github.com/alwint3r/bluest-nordic-uart-service/internal/status"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func runBridge(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := cfg.NewLogger(cmd.ErrOrStderr())

	adapter, err := devicefactory.NewAdapter(cfg.Backend, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	tty := isTerminal(out)
	printer := status.NewPrinter(out, cmd.ErrOrStderr(), tty && !cfg.NoColor)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The progress line would interleave with log lines below warn
	var progress *ProgressPrinter
	if tty && logger.GetLevel() <= logrus.WarnLevel {
		prefix := fmt.Sprintf("Scanning for %q", cfg.Name)
		if cfg.ScanTimeout > 0 {
			progress = NewCountdownProgressPrinter(out, prefix, "Starting", cfg.ScanTimeout, "Matched")
		} else {
			progress = NewProgressPrinter(out, prefix, "Starting", "Matched")
		}
		defer progress.Stop()
	}

	session := bridge.NewSession(adapter, bridge.Options{
		Name:                   cfg.Name,
		Payload:                []byte(cfg.Payload),
		ScanTimeout:            cfg.ScanTimeout,
		MaxConsecutiveFailures: cfg.MaxWriteFailures,
		Logger:                 logger,
		Observer:               &progressObserver{Observer: printer, progress: progress},
		Progress:               progress.Callback(),
	})

	_, err = session.Run(ctx)
	progress.Stop()

	if errors.Is(err, device.ErrNoMatchingDevice) {
		printer.NotFound()
	}
	return err
}

// progressObserver shows the progress line between the scan start and match
type progressObserver struct {
	bridge.Observer
	progress *ProgressPrinter
}

func (o *progressObserver) OnScanStarted(target string) {
	o.Observer.OnScanStarted(target)
	o.progress.Start()
}

func (o *progressObserver) OnDeviceFound(name, address string) {
	o.progress.Stop()
	o.Observer.OnDeviceFound(name, address)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isTerminalFd(f.Fd())
}
