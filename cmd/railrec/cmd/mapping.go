package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/railstation/railrec/internal/config"
	"github.com/railstation/railrec/internal/ingest"
	"github.com/railstation/railrec/pkg/mapping"
)

var mappingCmd = &cobra.Command{
	Use:     "mapping",
	Short:   "Work with route code mappings",
	GroupID: "data",
}

var mappingResolveCmd = &cobra.Command{
	Use:   "resolve <code>...",
	Short: "Resolve route codes to active export codes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		matrix, active, err := loadMapping()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		inactive := 0
		for _, code := range args {
			resolved, ok := mapping.Resolve(code, matrix, active)
			if ok {
				fmt.Fprintf(out, "%s -> %s\n", code, resolved)
				continue
			}
			inactive++
			fmt.Fprintf(out, "%s -> value is not active\n", code)
		}
		if inactive > 0 {
			return fmt.Errorf("%d of %d codes are not active", inactive, len(args))
		}
		return nil
	},
}

func init() {
	f := mappingCmd.PersistentFlags()
	f.String("pairs", "", "mapping pairs CSV file")
	f.String("active", "", "active export codes CSV file")
	f.Bool("win1251", false, "decode CSV files as Windows-1251")

	mappingCmd.AddCommand(mappingResolveCmd)
	rootCmd.AddCommand(mappingCmd)
}

// loadMapping builds the matrix and active set from the configured CSV
// files. A missing pairs file leaves an empty matrix: direct membership in
// the active set still resolves.
func loadMapping() (*mapping.Matrix, mapping.ActiveSet, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.ActiveCodes == "" {
		return nil, nil, fmt.Errorf("an active code list is required: set --active")
	}

	opts := ingest.CSVOptions{Windows1251: cfg.Windows1251, Comma: ';'}

	codes, err := ingest.ReadActiveCodes(cfg.ActiveCodes, opts)
	if err != nil {
		return nil, nil, err
	}
	active := mapping.NewActiveSet(codes)

	var pairs []mapping.Pair
	if cfg.MappingPairs != "" {
		pairs, err = ingest.ReadMappingPairs(cfg.MappingPairs, opts)
		if err != nil {
			return nil, nil, err
		}
	}
	return mapping.NewMatrix(pairs), active, nil
}
