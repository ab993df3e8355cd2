package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSweepCmd(a *app) *cobra.Command {
	var (
		overwrite  bool
		reportPath string
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Re-derive document metadata from source files",
		Long: `Read the embedded properties of every document's source file (author, title,
created and modified dates), derive year, month and day, and compute missing
content hashes. Fields that already hold a value are kept unless --overwrite
is given. A document that fails is reported and the sweep continues.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeDB, err := a.service(cmd.Context(), "")
			if err != nil {
				return err
			}
			defer closeDB()

			rep, err := svc.Sweep(cmd.Context(), overwrite)
			if ferr := finish(cmd.OutOrStdout(), rep, reportPath); err == nil {
				err = ferr
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace fields that already hold a value")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write the outcome report to this path (.yaml, .json or .parquet)")
	return cmd
}

func newDuplicatesCmd(a *app) *cobra.Command {
	var reportPath string

	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "List documents whose source files are probably identical",
		Long: `Compute content hashes for documents that have none and list groups of
documents whose hashes share their first 8 characters.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeDB, err := a.service(cmd.Context(), "")
			if err != nil {
				return err
			}
			defer closeDB()

			groups, rep, err := svc.Duplicates(cmd.Context())
			out := cmd.OutOrStdout()
			for _, g := range groups {
				fmt.Fprintf(out, "%s\n", g.Prefix)
				for _, d := range g.Documents {
					fmt.Fprintf(out, "  %d\t%s\t%s\n", d.ID, d.Name, d.SourcePath)
				}
			}
			if ferr := finish(out, rep, reportPath); err == nil {
				err = ferr
			}
			return err
		},
	}

	cmd.Flags().StringVar(&reportPath, "report", "", "Write the outcome report to this path (.yaml, .json or .parquet)")
	return cmd
}

func newRetitleCmd(a *app) *cobra.Command {
	var reportPath string

	cmd := &cobra.Command{
		Use:   "retitle",
		Short: "Make every document title unique",
		Long: `Give every document a title no other document holds by suffixing " (N)"
to shared titles.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeDB, err := a.service(cmd.Context(), "")
			if err != nil {
				return err
			}
			defer closeDB()

			rep, err := svc.Retitle(cmd.Context())
			if ferr := finish(cmd.OutOrStdout(), rep, reportPath); err == nil {
				err = ferr
			}
			return err
		},
	}

	cmd.Flags().StringVar(&reportPath, "report", "", "Write the outcome report to this path (.yaml, .json or .parquet)")
	return cmd
}
