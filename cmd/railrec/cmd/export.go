package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/railstation/railrec/internal/config"
	"github.com/railstation/railrec/internal/ingest"
	"github.com/railstation/railrec/pkg/errors"
	"github.com/railstation/railrec/pkg/logging"
	"github.com/railstation/railrec/pkg/mapping"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:     "export <stg-workbook>...",
	Short:   "Run a batch and export the result as an xlsx workbook",
	Long: `Export runs reconciliation like 'run' and writes the resolved routes,
expense lines, and summary to an xlsx workbook. When mapping files are
configured, route codes are projected onto the active export chart;
codes reaching nothing active are written flagged, never dropped.`,
	GroupID: "run",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.RequireReference(); err != nil {
			return err
		}

		rows, err := readWorkbooks(args)
		if err != nil {
			return err
		}
		snapshot, err := loadSnapshot(cmd, cfg)
		if err != nil {
			return err
		}
		engine, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		result, err := engine.RunBatch(cmd.Context(), rows, snapshot)
		if err != nil {
			return err
		}

		var matrix *mapping.Matrix
		var active mapping.ActiveSet
		if cfg.ActiveCodes != "" {
			matrix, active, err = loadMapping()
			if err != nil {
				return err
			}
		}

		f, err := os.Create(exportOut)
		if err != nil {
			return errors.WrapIO("create", exportOut, err)
		}
		defer f.Close()

		if err := ingest.WriteRunWorkbook(f, result, matrix, active); err != nil {
			return err
		}
		logging.Info().Str("path", exportOut).Str("run_id", result.Summary.RunID).Msg("exported run workbook")
		printSummary(cmd, result)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "railrec-run.xlsx", "output workbook path")
	exportCmd.Flags().AddFlagSet(mappingCmd.PersistentFlags())
	rootCmd.AddCommand(exportCmd)
}
