package cli

import (
	"fmt"

	"github.com/cloo-solutions/statusdigest/internal/config"
	"github.com/cloo-solutions/statusdigest/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// AddDebugFlag adds the persistent --debug flag read by Bootstrap
func AddDebugFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging (overrides DIGEST_DEBUG)")
}

// Bootstrap loads config and installs the process logger for a command.
// The returned cleanup flushes the logger.
func Bootstrap(cmd *cobra.Command) (*config.Config, *zap.Logger, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, func() {}, fmt.Errorf("failed to load config: %w", err)
	}

	if debug, err := cmd.Flags().GetBool("debug"); err == nil && debug {
		cfg.Debug = true
	}

	logger, cleanup, err := logging.New(cfg.Debug)
	if err != nil {
		return nil, nil, func() {}, err
	}
	return cfg, logger, cleanup, nil
}
