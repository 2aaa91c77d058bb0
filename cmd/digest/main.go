package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloo-solutions/statusdigest/internal/cli"
	"github.com/cloo-solutions/statusdigest/internal/cli/client"
	"github.com/cloo-solutions/statusdigest/internal/cli/local"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "digest",
		Short: "Weekly status report extraction",
		Long: `digest turns weekly status reports into per-project history rows.

Configuration is read from DIGEST_* environment variables and .env:
  DIGEST_DATABASE_URL       Postgres registry and history (optional for extract)
  DIGEST_PROJECT_CSV_PATH   Project registry CSV used without a database
  DIGEST_AZURE_OPENAI_*     Azure OpenAI credentials for --llm
  DIGEST_OPENAI_API_KEY     OpenAI credentials for --llm`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cli.AddDebugFlag(rootCmd)
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(local.ExtractCmd())
	rootCmd.AddCommand(local.ImportCmd())
	rootCmd.AddCommand(local.KBCmd())
	rootCmd.AddCommand(client.RemoteCmd())

	cli.CheckHelpJSON(rootCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
