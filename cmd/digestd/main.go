package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/statusdigest/internal/cli"
	"github.com/cloo-solutions/statusdigest/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "digestd",
		Short: "Status digest daemon",
		Long:  "digestd serves the report upload API, runs queued imports and manages the database schema",
	}

	cli.AddDebugFlag(rootCmd)
	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.MigrateCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
