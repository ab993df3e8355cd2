package cmd

import (
	"fmt"

	"github.com/lehigh-university-libraries/docmeta/internal/importer"
	"github.com/lehigh-university-libraries/docmeta/internal/sheet"
	"github.com/spf13/cobra"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		sheetName   string
		headingRow  int
		columnsFile string
		reportPath  string
	)

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Apply spreadsheet metadata to documents",
		Long: `Import document metadata from a spreadsheet (.xlsx or .csv).

Each row is matched to documents through the "original file name" column;
every document that has ever carried that file name receives the row. Rows
matching no document are skipped. Every column heading in the column table
must be present or nothing is imported.`,
		Example: `  # Import the register using the built-in column table
  docmeta import register.xlsx --report import.yaml

  # Import with a customised column table
  docmeta columns > columns.yaml
  docmeta import register.xlsx --columns columns.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := sheet.Options{SheetName: a.cfg.Import.Sheet, HeadingRow: a.cfg.Import.HeadingRow}
			if cmd.Flags().Changed("sheet") {
				opts.SheetName = sheetName
			}
			if cmd.Flags().Changed("heading-row") {
				opts.HeadingRow = headingRow
			}

			s, err := sheet.NewLoader(args[0], opts).Load()
			if err != nil {
				return fmt.Errorf("failed to load sheet: %w", err)
			}

			svc, closeDB, err := a.service(cmd.Context(), columnsFile)
			if err != nil {
				return err
			}
			defer closeDB()

			rep, err := svc.Import(cmd.Context(), s)
			if ferr := finish(cmd.OutOrStdout(), rep, reportPath); err == nil {
				err = ferr
			}
			return err
		},
	}

	cmd.Flags().StringVar(&sheetName, "sheet", sheet.DefaultSheetName, "Worksheet to read (falls back to the first sheet)")
	cmd.Flags().IntVar(&headingRow, "heading-row", sheet.DefaultHeadingRow, "Zero-based index of the heading row")
	cmd.Flags().StringVar(&columnsFile, "columns", "", "YAML column table (defaults to the built-in table)")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write the outcome report to this path (.yaml, .json or .parquet)")
	return cmd
}

func newColumnsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "columns",
		Short: "Print the built-in import column table as YAML",
		Long: `Print the built-in column table. Save and edit the output to import a
spreadsheet with a different layout using "import --columns".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return importer.WriteColumns(cmd.OutOrStdout(), importer.DefaultColumns())
		},
	}
}
