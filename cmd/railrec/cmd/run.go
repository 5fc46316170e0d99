package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/railstation/railrec"
	"github.com/railstation/railrec/internal/config"
	"github.com/railstation/railrec/internal/ingest"
	"github.com/railstation/railrec/internal/store/sqlite"
	"github.com/railstation/railrec/pkg/expense"
	"github.com/railstation/railrec/pkg/logging"
	"github.com/railstation/railrec/pkg/reference"
	"github.com/railstation/railrec/pkg/stg"
)

var runJSON bool

var runCmd = &cobra.Command{
	Use:     "run <stg-workbook>...",
	Short:   "Reconcile staging workbooks against the reference snapshot",
	GroupID: "run",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runBatch,
}

func init() {
	f := runCmd.Flags()
	f.Int("workers", 0, "shipment workers (default: one per CPU)")
	f.String("rounding", "", "rounding mode: half_even or half_up")
	f.Bool("inherit", false, "empty legs inherit their trip's route")
	f.Bool("dedupe", false, "keep the latest row per wagon and invoice")
	f.BoolVar(&runJSON, "json", false, "print the full result as JSON")

	rootCmd.AddCommand(runCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
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

	if runJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printSummary(cmd, result)
	return nil
}

func readWorkbooks(paths []string) ([]stg.RawRow, error) {
	var rows []stg.RawRow
	for _, path := range paths {
		fileRows, err := ingest.ReadSTGWorkbook(path)
		if err != nil {
			return nil, err
		}
		logging.Debug().Str("path", path).Int("rows", len(fileRows)).Msg("read staging workbook")
		rows = append(rows, fileRows...)
	}
	return rows, nil
}

func loadSnapshot(cmd *cobra.Command, cfg *config.Config) (*reference.Snapshot, error) {
	if cfg.ReferenceFile != "" {
		return reference.LoadSnapshotFile(cfg.ReferenceFile)
	}
	store, err := sqlite.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Snapshot(cmd.Context())
}

func buildEngine(cfg *config.Config) (railrec.Engine, error) {
	opts := []railrec.Option{
		railrec.WithTripInheritance(cfg.TripInheritance),
		railrec.WithDeduplication(cfg.Dedupe),
		railrec.WithLogger(logging.Default()),
	}
	if cfg.Workers > 0 {
		opts = append(opts, railrec.WithWorkers(cfg.Workers))
	}
	if cfg.Rounding != "" {
		mode, err := expense.ParseRoundingMode(cfg.Rounding)
		if err != nil {
			return nil, err
		}
		opts = append(opts, railrec.WithRounding(mode))
	}
	return railrec.New(opts...)
}

func printSummary(cmd *cobra.Command, result *railrec.RunResult) {
	s := result.Summary
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Run %s\n", s.RunID)
	fmt.Fprintf(out, "  rows:              %d\n", s.InputRows)
	fmt.Fprintf(out, "  matched:           %d\n", s.Matched())
	for _, layer := range []string{"Override", "Exception", "Base"} {
		for l, n := range s.MatchedByLayer {
			if l.String() == layer && n > 0 {
				fmt.Fprintf(out, "    %-15s %d\n", layer+":", n)
			}
		}
	}
	fmt.Fprintf(out, "  unmatched:         %d\n", s.Unmatched)
	fmt.Fprintf(out, "  conflicts:         %d\n", s.Conflicts)
	fmt.Fprintf(out, "  validation errors: %d\n", s.ValidationErrors)
	if s.DuplicatesDropped > 0 {
		fmt.Fprintf(out, "  duplicates:        %d\n", s.DuplicatesDropped)
	}
	if s.Inherited > 0 {
		fmt.Fprintf(out, "  inherited:         %d\n", s.Inherited)
	}
	if s.Collisions > 0 {
		fmt.Fprintf(out, "  collisions:        %d\n", s.Collisions)
	}
	if s.Imbalances > 0 {
		fmt.Fprintf(out, "  imbalances:        %d\n", s.Imbalances)
	}
	fmt.Fprintf(out, "  expense lines:     %d\n", s.ExpenseLines)
	for currency, total := range s.TotalsByCurrency {
		fmt.Fprintf(out, "  total %s:         %s\n", currency, total.String())
	}
	fmt.Fprintf(out, "  duration:          %s\n", s.Duration)

	for _, failure := range s.Failures {
		fmt.Fprintf(out, "  ! %s\n", failure)
	}
}
