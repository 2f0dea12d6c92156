package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/alwint3r/bluest-nordic-uart-service/internal/device"
	"github.com/alwint3r/bluest-nordic-uart-service/internal/devicefactory"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

// newRootCmd builds the nusbridge command
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nusbridge --name <device>",
		Short: "Bridge a Nordic UART Service peripheral to the terminal",
		Long: `Bridge a Nordic UART Service (NUS) peripheral to the terminal.

Scans for the peripheral advertising the given name, connects, resolves the
NUS service, then writes the payload to RX every 10 seconds and prints every
TX notification until the peripheral disconnects or Ctrl+C is pressed.`,
		Example: `  nusbridge --name Tag-01
  nusbridge --name Tag-01 --payload ping --scan-timeout 30s
  nusbridge --config nusbridge.yaml --log-level debug`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", formatVersion(version), commit, date),
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          runBridge,
	}

	flags := cmd.Flags()
	flags.StringP("name", "n", "", "Advertised name of the peripheral (exact match)")
	flags.StringP("config", "c", "", "YAML configuration file")
	flags.StringP("payload", "p", "", "Payload written to RX every 10 seconds (default \"Hello from Rust!\")")
	flags.StringP("backend", "b", "", fmt.Sprintf("BLE backend (%s) (default %q)", strings.Join(devicefactory.Names(), ", "), devicefactory.DefaultBackend))
	flags.Duration("scan-timeout", 0, "Give up scanning after this long (0 = scan until found)")
	flags.Int("max-write-failures", 0, "Stop writing after N consecutive failures, 0 = never (default 3)")
	flags.String("log-level", "", "Log level (debug, info, warn, error) (default \"warn\")")
	flags.Bool("no-color", false, "Disable colored output")

	return cmd
}

func main() {
	err := newRootCmd().Execute()
	code := ExitCode(err)
	if code == 0 {
		// Ctrl+C is a normal exit
		return
	}
	// The not-found line is printed by the command itself
	if !errors.Is(err, device.ErrNoMatchingDevice) {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", FormatUserError(err))
	}
	os.Exit(code)
}
