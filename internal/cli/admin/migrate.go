package admin

import (
	"fmt"

	"github.com/cloo-solutions/statusdigest/internal/cli"
	"github.com/cloo-solutions/statusdigest/internal/database"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, cleanup, err := cli.Bootstrap(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if !cfg.HasDatabase() {
				return fmt.Errorf("DIGEST_DATABASE_URL is required to migrate")
			}

			source, _ := cmd.Flags().GetString("migrations")
			version, err := database.Migrate(cfg.DatabaseURL, source, logger)
			if err != nil {
				return err
			}
			logger.Info("schema ready", zap.Uint("version", version))
			return nil
		},
	}

	cmd.Flags().String("migrations", database.DefaultMigrationsSource, "Migration source URL")
	return cmd
}
