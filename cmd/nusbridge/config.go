package main

import (
	"github.com/alwint3r/bluest-nordic-uart-service/pkg/config"
	"github.com/spf13/cobra"
)

// loadConfig merges defaults, the optional --config file and explicitly set flags, in that order
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	cfg := config.DefaultConfig()
	if path, _ := flags.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if flags.Changed("name") {
		cfg.Name, _ = flags.GetString("name")
	}
	if flags.Changed("payload") {
		cfg.Payload, _ = flags.GetString("payload")
	}
	if flags.Changed("backend") {
		cfg.Backend, _ = flags.GetString("backend")
	}
	if flags.Changed("scan-timeout") {
		cfg.ScanTimeout, _ = flags.GetDuration("scan-timeout")
	}
	if flags.Changed("max-write-failures") {
		cfg.MaxWriteFailures, _ = flags.GetInt("max-write-failures")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("no-color") {
		cfg.NoColor, _ = flags.GetBool("no-color")
	}

	return cfg, nil
}
