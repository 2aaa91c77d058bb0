package local

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/cloo-solutions/statusdigest/internal/cli"
	"github.com/cloo-solutions/statusdigest/internal/document"
	"github.com/cloo-solutions/statusdigest/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ImportCmd returns the import command
func ImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file|dir>...",
		Short: "Extract reports and persist their rows as project history",
		Long: `Import extracts each report and writes its rows to the database. Directories
are searched recursively for .docx, .md and .txt files. A report whose content
was already imported is skipped unless --force is given.`,
		Example: `  digest import reports/2025 --parallel 4
  digest import 2025_CW07_DEV.docx --llm --force`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().Bool("llm", false, "Use the model-backed extractor")
	cmd.Flags().Bool("force", false, "Re-import reports that already have history rows")
	cmd.Flags().IntP("parallel", "j", 1, "Number of reports imported concurrently")
	cmd.Flags().String("created-by", "", "Author recorded on uploads and rows (default: system)")
	cmd.Flags().Bool("pretty", true, "Indent the JSON output")

	return cmd
}

// fileOutcome is one line of the import report
type fileOutcome struct {
	File   string                `json:"file"`
	Result *service.ImportResult `json:"result,omitempty"`
	Error  string                `json:"error,omitempty"`
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, logger, cleanup, err := cli.Bootstrap(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	useLLM, _ := cmd.Flags().GetBool("llm")
	force, _ := cmd.Flags().GetBool("force")
	parallel, _ := cmd.Flags().GetInt("parallel")
	createdBy, _ := cmd.Flags().GetString("created-by")
	pretty, _ := cmd.Flags().GetBool("pretty")

	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no supported report files found")
	}

	p, err := cli.NewPipeline(ctx, cfg, logger, cli.PipelineOptions{RequireDatabase: true})
	if err != nil {
		return err
	}
	defer p.Close()

	outcomes := importAll(ctx, p.Importer, files, service.ImportInput{
		UseLLM:    useLLM,
		Force:     force,
		CreatedBy: createdBy,
	}, parallel, logger)

	if err := writeJSON(outcomes, pretty); err != nil {
		return err
	}

	failed := 0
	for _, o := range outcomes {
		if o.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d imports failed", failed, len(outcomes))
	}
	return nil
}

type importer interface {
	Import(ctx context.Context, input service.ImportInput) (*service.ImportResult, error)
}

// importAll imports files with at most parallel in flight. A failed file
// does not stop the others; outcomes keep the order of files.
func importAll(ctx context.Context, imp importer, files []string, base service.ImportInput, parallel int, logger *zap.Logger) []fileOutcome {
	if parallel < 1 {
		parallel = 1
	}
	outcomes := make([]fileOutcome, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			outcomes[i] = fileOutcome{File: path}

			data, err := os.ReadFile(path)
			if err != nil {
				outcomes[i].Error = err.Error()
				return nil
			}

			input := base
			input.Filename = filepath.Base(path)
			input.Data = data

			result, err := imp.Import(ctx, input)
			if err != nil {
				logger.Warn("import failed", zap.String("file", path), zap.Error(err))
				outcomes[i].Error = err.Error()
				return nil
			}
			logger.Info("imported",
				zap.String("file", path),
				zap.Int("rows_created", result.RowsCreated),
				zap.Bool("skipped", result.Skipped),
			)
			outcomes[i].Result = result
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// collectFiles expands directories into the supported report files they
// contain. Explicit file arguments are kept even with an unknown extension
// so the import reports the error.
func collectFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		var found []string
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && d.Name()[0] == '.' {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Name()[0] != '.' && d.Name()[0] != '~' && document.Supported(d.Name()) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}
