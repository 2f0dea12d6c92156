package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alwint3r/bluest-nordic-uart-service/internal/device"
	"github.com/stretchr/testify/suite"
)

type BridgeCommandTestSuite struct {
	CommandTestSuite
}

func (suite *BridgeCommandTestSuite) TestBridgeSession() {
	// GOAL: Verify the command prints the session lines and exits cleanly when the peripheral disconnects
	//
	// TEST SCENARIO: --name Tag-01 --payload ping → first write sent → notification → peer drops → exit 0

	run := suite.StartCommand("--name", "Tag-01", "--payload", "ping")

	suite.Require().Eventually(func() bool { return suite.RX().WriteCount() == 1 }, suite.TestTimeout, time.Millisecond)
	suite.TX().Notify([]byte("pong"))
	suite.Require().Eventually(func() bool {
		return strings.Contains(run.stdout.String(), "Read: pong")
	}, suite.TestTimeout, time.Millisecond)

	suite.Peer.Drop()
	err := suite.Wait(run)

	suite.Require().NoError(err)
	suite.Assert().Equal(0, ExitCode(err))
	suite.Assert().Equal("ping", string(suite.RX().Writes()[0]))

	out := run.stdout.String()
	for _, line := range []string{
		"Starting scan",
		"Found device Tag-01 (AA:BB:CC:DD:EE:01)",
		"Connected to Device!",
		"Write: ping",
		"Read: pong",
		"Disconnected from device!",
	} {
		suite.Assert().Contains(out, line)
	}
	suite.Assert().Less(strings.Index(out, "Starting scan"), strings.Index(out, "Connected to Device!"))
	suite.Assert().NotContains(out, "\x1b[", "non-terminal output MUST NOT be colored")
}

func (suite *BridgeCommandTestSuite) TestNoMatchingDevice() {
	// GOAL: Verify a scan without a match reports not found and exits with code 2
	//
	// TEST SCENARIO: scan stream ends without "Missing" → "No device found!" → ErrNoMatchingDevice

	suite.Adapter.WithEndScan()

	_, stderr, err := suite.ExecuteCommand("--name", "Missing")

	suite.Assert().ErrorIs(err, device.ErrNoMatchingDevice)
	suite.Assert().Equal(ExitNoMatchingDevice, ExitCode(err))
	suite.Assert().Contains(stderr, "No device found!")
	suite.Assert().Empty(suite.Adapter.ConnectCalls())
}

func (suite *BridgeCommandTestSuite) TestScanTimeout() {
	_, _, err := suite.ExecuteCommand("--name", "Missing", "--scan-timeout", "20ms")

	suite.Assert().ErrorIs(err, device.ErrNoMatchingDevice)
}

func (suite *BridgeCommandTestSuite) TestInterrupt() {
	// GOAL: Verify cancellation while streaming is a clean exit
	//
	// TEST SCENARIO: session streaming → context cancelled → exit code 0, disconnect called

	run := suite.StartCommand("--name", "Tag-00")
	suite.Require().Eventually(func() bool { return suite.RX().WriteCount() == 1 }, suite.TestTimeout, time.Millisecond)

	run.cancel()
	err := suite.Wait(run)

	suite.Assert().Equal(0, ExitCode(err))
	suite.Assert().Equal(1, suite.Adapter.DisconnectCalls())
}

func (suite *BridgeCommandTestSuite) TestConfigFile() {
	// GOAL: Verify the config file is applied and explicit flags override it
	//
	// TEST SCENARIO: file sets name and payload → --payload overrides → flag payload written

	path := filepath.Join(suite.T().TempDir(), "nusbridge.yaml")
	suite.Require().NoError(os.WriteFile(path, []byte("name: Tag-01\npayload: from-file\nmax_write_failures: 5\n"), 0o600))

	suite.Run("file only", func() {
		suite.SetupTest()
		defer suite.TearDownTest()

		run := suite.StartCommand("--config", path)
		suite.Require().Eventually(func() bool { return suite.RX().WriteCount() == 1 }, suite.TestTimeout, time.Millisecond)
		suite.Peer.Drop()
		suite.Require().NoError(suite.Wait(run))
		suite.Assert().Equal("from-file", string(suite.RX().Writes()[0]))
	})

	suite.Run("flag overrides file", func() {
		suite.SetupTest()
		defer suite.TearDownTest()

		run := suite.StartCommand("--config", path, "--payload", "from-flag")
		suite.Require().Eventually(func() bool { return suite.RX().WriteCount() == 1 }, suite.TestTimeout, time.Millisecond)
		suite.Peer.Drop()
		suite.Require().NoError(suite.Wait(run))
		suite.Assert().Equal("from-flag", string(suite.RX().Writes()[0]))
	})
}

func (suite *BridgeCommandTestSuite) TestInvalidInput() {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing name", []string{}, "device name is required"},
		{"unknown backend", []string{"--name", "Tag-01", "--backend", "winrt"}, `unknown backend "winrt"`},
		{"bad log level", []string{"--name", "Tag-01", "--log-level", "loud"}, "invalid log level"},
		{"missing config", []string{"--config", "/nonexistent/nusbridge.yaml"}, "failed to read config"},
		{"positional argument", []string{"Tag-01"}, "unknown command"},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, _, err := suite.ExecuteCommand(tt.args...)
			suite.Require().Error(err)
			suite.Assert().Contains(err.Error(), tt.wantErr)
			suite.Assert().Equal(ExitFailure, ExitCode(err))
		})
	}
	suite.Assert().Zero(suite.Adapter.ScanCalls(), "invalid input MUST NOT start a scan")
}

func TestBridgeCommandTestSuite(t *testing.T) {
	suite.Run(t, new(BridgeCommandTestSuite))
}
