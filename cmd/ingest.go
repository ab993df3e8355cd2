package cmd

import (
	"github.com/spf13/cobra"
)

func newUploadCmd(a *app) *cobra.Command {
	var reportPath string

	cmd := &cobra.Command{
		Use:   "upload SOURCE",
		Short: "Copy a local directory tree into the blob store",
		Long: `Copy every file under SOURCE into the configured blob store, preserving the
folder structure relative to SOURCE. Python files are skipped.`,
		Example: `  # Upload a document share, then create documents for the new files
  docmeta upload ./share
  docmeta ingest`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeDB, err := a.service(cmd.Context(), "")
			if err != nil {
				return err
			}
			defer closeDB()

			rep, err := svc.Upload(cmd.Context(), args[0])
			if ferr := finish(cmd.OutOrStdout(), rep, reportPath); err == nil {
				err = ferr
			}
			return err
		},
	}

	cmd.Flags().StringVar(&reportPath, "report", "", "Write the outcome report to this path (.yaml, .json or .parquet)")
	return cmd
}

func newIngestCmd(a *app) *cobra.Command {
	var reportPath string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Create documents for stored files that have none",
		Long: `Create a placeholder document for every file in the blob store that no
document references. Each document is titled after its file name and filed
under the categories named by the file's folders. Hidden files are ignored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeDB, err := a.service(cmd.Context(), "")
			if err != nil {
				return err
			}
			defer closeDB()

			rep, err := svc.Ingest(cmd.Context())
			if ferr := finish(cmd.OutOrStdout(), rep, reportPath); err == nil {
				err = ferr
			}
			return err
		},
	}

	cmd.Flags().StringVar(&reportPath, "report", "", "Write the outcome report to this path (.yaml, .json or .parquet)")
	return cmd
}
