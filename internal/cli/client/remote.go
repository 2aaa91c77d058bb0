package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

const defaultPollInterval = 2 * time.Second

// RemoteCmd returns the remote command group
func RemoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Submit reports to and query a running digestd",
		Long: `Remote commands talk to digestd over HTTP.

Environment variables:
  DIGEST_API_KEY   Bearer token, when the server requires one
  DIGEST_API_URL   Server base URL (default: http://localhost:8080)`,
	}

	cmd.PersistentFlags().String("api-key", "", "API key (overrides DIGEST_API_KEY)")
	cmd.PersistentFlags().String("api-url", "", "API base URL (overrides DIGEST_API_URL)")

	cmd.AddCommand(submitCmd())
	cmd.AddCommand(remoteExtractCmd())
	cmd.AddCommand(jobCmd())
	cmd.AddCommand(historyCmd())
	return cmd
}

func submitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Upload a report for import",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			useLLM, _ := cmd.Flags().GetBool("llm")
			force, _ := cmd.Flags().GetBool("force")
			wait, _ := cmd.Flags().GetBool("wait")
			createdBy, _ := cmd.Flags().GetString("created-by")
			quiet, _ := cmd.Flags().GetBool("quiet")

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			var progress ProgressFunc
			if !quiet {
				progress = func(current, total int64) {
					fmt.Fprintf(os.Stderr, "\ruploading %d/%d bytes", current, total)
					if current >= total {
						fmt.Fprintln(os.Stderr)
					}
				}
			}

			api := NewAPIClientWithCmd(cmd)
			job, err := api.SubmitReport(cmd.Context(), args[0], data, ReportOptions{
				UseLLM:    useLLM,
				Force:     force,
				CreatedBy: createdBy,
			}, progress)
			if err != nil {
				return fmt.Errorf("failed to submit report: %w", err)
			}

			if wait {
				job, err = api.WaitJob(cmd.Context(), job.ID, defaultPollInterval)
				if err != nil {
					return err
				}
			}
			if err := printJSON(job); err != nil {
				return err
			}
			if job.Status == "failed" {
				return fmt.Errorf("import failed: %s", job.Error)
			}
			return nil
		},
	}

	cmd.Flags().Bool("llm", false, "Use the model-backed extractor")
	cmd.Flags().Bool("force", false, "Re-import a report that already has history rows")
	cmd.Flags().Bool("wait", false, "Wait for the import job to finish")
	cmd.Flags().String("created-by", "", "Author recorded on the upload and rows")
	cmd.Flags().BoolP("quiet", "q", false, "Do not report upload progress")
	return cmd
}

func remoteExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract rows on the server without importing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			useLLM, _ := cmd.Flags().GetBool("llm")
			cw, _ := cmd.Flags().GetString("cw")
			category, _ := cmd.Flags().GetString("category")

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			out, err := NewAPIClientWithCmd(cmd).ExtractReport(cmd.Context(), args[0], data, ReportOptions{
				UseLLM:   useLLM,
				CWLabel:  cw,
				Category: category,
			})
			if err != nil {
				return fmt.Errorf("failed to extract report: %w", err)
			}
			return printJSON(out)
		},
	}

	cmd.Flags().Bool("llm", false, "Use the model-backed extractor")
	cmd.Flags().String("cw", "", "Calendar week override")
	cmd.Flags().String("category", "", "Category override")
	return cmd
}

func jobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job <id>",
		Short: "Show an import job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wait, _ := cmd.Flags().GetBool("wait")
			timeout, _ := cmd.Flags().GetDuration("timeout")

			api := NewAPIClientWithCmd(cmd)
			ctx := cmd.Context()

			var job *Job
			var err error
			if wait {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
				job, err = api.WaitJob(ctx, args[0], defaultPollInterval)
			} else {
				job, err = api.GetJob(ctx, args[0])
			}
			if err != nil {
				return err
			}
			return printJSON(job)
		},
	}

	cmd.Flags().Bool("wait", false, "Poll until the job is completed or failed")
	cmd.Flags().Duration("timeout", 10*time.Minute, "Give up waiting after this long")
	return cmd
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <project_code>",
		Short: "List a project's history, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			cursor, _ := cmd.Flags().GetString("cursor")

			page, err := NewAPIClientWithCmd(cmd).ProjectHistory(cmd.Context(), args[0], cursor, limit)
			if err != nil {
				return err
			}
			if err := printJSON(page.Items); err != nil {
				return err
			}
			if page.HasMore {
				fmt.Fprintf(os.Stderr, "more rows: --cursor %s\n", page.Cursor)
			}
			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "Rows per page (max 100)")
	cmd.Flags().String("cursor", "", "Cursor from a previous page")
	return cmd
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
