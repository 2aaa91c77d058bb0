// Package local implements the digest commands that run the pipeline in
// process: extraction, import and project registry maintenance.
package local

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cloo-solutions/statusdigest/internal/cli"
	"github.com/cloo-solutions/statusdigest/internal/document"
	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/cloo-solutions/statusdigest/internal/extract"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ExtractCmd returns the extract command
func ExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract project rows from a report and print them as JSON",
		Long: `Extract reads a .docx, .md or .txt weekly report and prints the project rows
it attributes, without writing anything. Calendar week and category come from
the filename unless --cw and --category are given.`,
		Example: `  digest extract 2025_CW07_DEV.docx
  digest extract notes.md --cw CW07 --category EPC --llm`,
		Args: cobra.ExactArgs(1),
		RunE: runExtract,
	}

	cmd.Flags().Bool("llm", false, "Use the model-backed extractor")
	cmd.Flags().String("cw", "", "Calendar week override (CW07, cw7 or 7)")
	cmd.Flags().String("category", "", "Category override (Development, EPC, Finance, Investment)")
	cmd.Flags().String("csv", "", "Project registry CSV (overrides DIGEST_PROJECT_CSV_PATH)")
	cmd.Flags().Bool("pretty", true, "Indent the JSON output")

	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, logger, cleanup, err := cli.Bootstrap(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if csvPath, _ := cmd.Flags().GetString("csv"); csvPath != "" {
		cfg.ProjectCSVPath = csvPath
	}
	useLLM, _ := cmd.Flags().GetBool("llm")
	cw, _ := cmd.Flags().GetString("cw")
	category, _ := cmd.Flags().GetString("category")
	pretty, _ := cmd.Flags().GetBool("pretty")

	path := args[0]
	meta, err := extract.ResolveMeta(path, cw, category)
	if err != nil {
		return err
	}

	blocks, err := document.ExtractFile(path)
	if err != nil {
		return err
	}

	p, err := cli.NewPipeline(ctx, cfg, logger, cli.PipelineOptions{})
	if err != nil {
		return err
	}
	defer p.Close()

	rows, err := p.Engine.Extract(ctx, blocks, meta.CWLabel, meta.Category, useLLM)
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []domain.ExtractedRow{}
	}

	logger.Info("extracted",
		zap.String("file", filepath.Base(path)),
		zap.String("cw", meta.CWLabel),
		zap.String("category", string(meta.Category)),
		zap.Int("rows", len(rows)),
	)
	return writeJSON(rows, pretty)
}

func writeJSON(v interface{}, pretty bool) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
