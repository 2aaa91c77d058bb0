package local

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/cloo-solutions/statusdigest/internal/cli"
	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/cloo-solutions/statusdigest/internal/kb"
	"github.com/spf13/cobra"
)

// KBCmd returns the kb command group
func KBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "kb",
		Aliases: []string{"projects"},
		Short:   "Inspect and seed the project registry",
	}
	cmd.AddCommand(kbListCmd())
	cmd.AddCommand(kbSeedCmd())
	return cmd
}

func kbListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registry projects (database, else the project CSV)",
		Args:  cobra.NoArgs,
		RunE:  runKBList,
	}
	cmd.Flags().Bool("json", false, "Output as JSON")
	cmd.Flags().Bool("all", false, "Include inactive projects")
	cmd.Flags().String("csv", "", "Project registry CSV (overrides DIGEST_PROJECT_CSV_PATH)")
	return cmd
}

func kbSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "seed",
		Short:   "Upsert registry projects from a CSV export",
		Example: "  digest kb seed --csv data/project.csv",
		Args:    cobra.NoArgs,
		RunE:    runKBSeed,
	}
	cmd.Flags().String("csv", "", "Project registry CSV to load")
	_ = cmd.MarkFlagRequired("csv")
	cmd.Flags().String("created-by", "system", "Author recorded on the projects")
	return cmd
}

func runKBList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, logger, cleanup, err := cli.Bootstrap(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	asJSON, _ := cmd.Flags().GetBool("json")
	all, _ := cmd.Flags().GetBool("all")
	if csvPath, _ := cmd.Flags().GetString("csv"); csvPath != "" {
		cfg.ProjectCSVPath = csvPath
		cfg.DatabaseURL = ""
	}

	var entries []domain.KnowledgeEntry
	if cfg.HasDatabase() {
		p, err := cli.NewPipeline(ctx, cfg, logger, cli.PipelineOptions{})
		if err != nil {
			return err
		}
		defer p.Close()

		projects, err := p.Projects.List(ctx)
		if err != nil {
			return err
		}
		for _, pr := range projects {
			entries = append(entries, pr.Entry())
		}
	} else {
		entries, err = kb.NewCSVSource(cfg.ProjectCSVPath).ListAll(ctx)
		if err != nil {
			return err
		}
	}

	if !all {
		entries = activeOnly(entries)
	}
	if entries == nil {
		entries = []domain.KnowledgeEntry{}
	}

	if asJSON {
		return writeJSON(entries, true)
	}
	return writeTable(os.Stdout, entries)
}

func runKBSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, logger, cleanup, err := cli.Bootstrap(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	csvPath, _ := cmd.Flags().GetString("csv")
	createdBy, _ := cmd.Flags().GetString("created-by")

	entries, err := kb.NewCSVSource(csvPath).ListAll(ctx)
	if err != nil {
		return err
	}

	p, err := cli.NewPipeline(ctx, cfg, logger, cli.PipelineOptions{RequireDatabase: true})
	if err != nil {
		return err
	}
	defer p.Close()

	result, err := p.Projects.Seed(ctx, entries, createdBy)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "upserted %d projects, skipped %d rows\n", result.Upserted, result.Skipped)
	return nil
}

func activeOnly(entries []domain.KnowledgeEntry) []domain.KnowledgeEntry {
	var out []domain.KnowledgeEntry
	for _, e := range entries {
		if e.Active {
			out = append(out, e)
		}
	}
	return out
}

func writeTable(w io.Writer, entries []domain.KnowledgeEntry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNAME\tCLUSTER\tACTIVE")
	for _, e := range entries {
		cluster := e.Cluster
		if cluster == "" {
			cluster = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", e.Code, e.Name, cluster, e.Active)
	}
	return tw.Flush()
}
