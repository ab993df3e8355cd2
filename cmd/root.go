package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/docmeta/internal/config"
	"github.com/lehigh-university-libraries/docmeta/internal/logging"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "docmeta",
		Short: "Document metadata cataloguing and reconciliation tool",
		Long: `Docmeta keeps a catalogue of source documents in agreement with the files in
storage and the metadata recorded for them in spreadsheets.

It ingests untracked files as placeholder documents, imports spreadsheet rows
onto documents by file name, sweeps documents to re-derive metadata from their
PDF properties, and reports probable duplicates by content hash.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			cfg, err := config.Load(a.configFile)
			if err != nil {
				return err
			}
			a.cfg = cfg

			level := cfg.Log.Level
			if cmd.Flags().Changed("log-level") {
				level = a.logLevel
			}
			if a.verbose {
				level = "debug"
			}
			format := cfg.Log.Format
			if cmd.Flags().Changed("log-format") {
				format = a.logFormat
			}
			logging.Setup(os.Stderr, level, format)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&a.configFile, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "Verbose logging")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "text", "Log format (text or json)")

	// Add subcommands
	cmd.AddCommand(newUploadCmd(a))
	cmd.AddCommand(newIngestCmd(a))
	cmd.AddCommand(newImportCmd(a))
	cmd.AddCommand(newColumnsCmd())
	cmd.AddCommand(newSweepCmd(a))
	cmd.AddCommand(newDuplicatesCmd(a))
	cmd.AddCommand(newRetitleCmd(a))
	cmd.AddCommand(newCategoriesCmd(a))

	return cmd
}
