package main

import (
	"context"
	"time"

	"github.com/alwint3r/bluest-nordic-uart-service/internal/testutils"
)

// CommandTestSuite extends MockBLEPeripheralSuite with command execution helpers
type CommandTestSuite struct {
	testutils.MockBLEPeripheralSuite
}

type commandRun struct {
	stdout *testutils.SyncBuffer
	stderr *testutils.SyncBuffer
	done   chan error
	cancel context.CancelFunc
}

// StartCommand runs nusbridge with args in the background
func (s *CommandTestSuite) StartCommand(args ...string) *commandRun {
	ctx, cancel := context.WithCancel(context.Background())
	run := &commandRun{
		stdout: &testutils.SyncBuffer{},
		stderr: &testutils.SyncBuffer{},
		done:   make(chan error, 1),
		cancel: cancel,
	}

	cmd := newRootCmd()
	cmd.SetOut(run.stdout)
	cmd.SetErr(run.stderr)
	cmd.SetArgs(args)

	go func() { run.done <- cmd.ExecuteContext(ctx) }()
	return run
}

// ExecuteCommand runs nusbridge with args to completion
func (s *CommandTestSuite) ExecuteCommand(args ...string) (stdout, stderr string, err error) {
	run := s.StartCommand(args...)
	defer run.cancel()
	err = s.Wait(run)
	return run.stdout.String(), run.stderr.String(), err
}

// Wait blocks until the command returns
func (s *CommandTestSuite) Wait(run *commandRun) error {
	select {
	case err := <-run.done:
		return err
	case <-time.After(s.TestTimeout):
		s.FailNow("command did not finish")
		return nil
	}
}
