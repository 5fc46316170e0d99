package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/railstation/railrec/internal/config"
	"github.com/railstation/railrec/internal/store/sqlite"
	"github.com/railstation/railrec/pkg/reference"
)

var referenceCmd = &cobra.Command{
	Use:     "reference",
	Short:   "Inspect and validate reference data",
	GroupID: "data",
}

var referenceValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Lint the reference snapshot for structural and overlap problems",
	RunE: func(cmd *cobra.Command, _ []string) error {
		snapshot, err := referenceSnapshot(cmd)
		if err != nil {
			return err
		}

		problems := snapshot.Lint()
		if len(problems) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d entries, no problems\n", snapshot.Len())
			return nil
		}
		for _, p := range problems {
			fmt.Fprintf(cmd.OutOrStdout(), "problem: %v\n", p)
		}
		return fmt.Errorf("%d reference data problems", len(problems))
	},
}

var referenceShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the reference snapshot layer by layer",
	RunE: func(cmd *cobra.Command, _ []string) error {
		snapshot, err := referenceSnapshot(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, layer := range reference.Layers() {
			entries := snapshot.Entries(layer)
			fmt.Fprintf(out, "%s (%d entries)\n", layer, len(entries))
			for _, e := range entries {
				window := ""
				if e.MatchKey.EffectiveFrom != nil || e.MatchKey.EffectiveTo != nil {
					window = fmt.Sprintf(" [%s..%s]",
						formatDate(e.MatchKey.EffectiveFrom), formatDate(e.MatchKey.EffectiveTo))
				}
				fmt.Fprintf(out, "  %s: %s -> %s carrier=%s%s components=%d\n",
					e.ID, orAny(e.MatchKey.Origin), orAny(e.MatchKey.Destination),
					orAny(e.MatchKey.Carrier), window, len(e.RateRule.Components))
			}
		}
		return nil
	},
}

func init() {
	referenceCmd.AddCommand(referenceValidateCmd)
	referenceCmd.AddCommand(referenceShowCmd)
	rootCmd.AddCommand(referenceCmd)
}

func referenceSnapshot(cmd *cobra.Command) (*reference.Snapshot, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireReference(); err != nil {
		return nil, err
	}
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

func orAny(s string) string {
	if s == "" || s == reference.Wildcard {
		return "*"
	}
	return s
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
