// Package cmd implements the railrec command tree.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/railstation/railrec/pkg/logging"
)

var (
	configFile string
	verbose    bool
	quiet      bool

	// Version information set by main.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// Date is the build date.
	Date = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "railrec",
	Short: "STG reconciliation and expense engine",
	Long: `Railrec reconciles raw logistics staging records against layered
reference data (base routes, exceptions, manual overrides), assigns each
shipment a canonical route ID, and computes its expense line items.

A run consumes one batch of staging rows plus one frozen reference
snapshot and produces resolved routes, expense lines, and an audit
summary. Nothing is ever dropped silently: unmatched shipments,
conflicts, and per-shipment failures all surface in the summary.`,
	PersistentPreRunE: setup,
	SilenceUsage:      true,
}

// Execute runs the command tree with signal-aware cancellation.
func Execute(version, commit, date string) {
	Version, Commit, Date = version, commit, date

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddGroup(&cobra.Group{ID: "run", Title: "Run Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "data", Title: "Data Commands:"})

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file (default is $HOME/.railrec/railrec.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.BoolVarP(&quiet, "quiet", "q", false, "errors only")

	pf.String("reference", "", "reference snapshot YAML file")
	pf.String("db", "", "SQLite reference store path")
}

// bindFlags binds flag values into viper. Runs on every execution so tests
// that reset viper state get their bindings back.
func bindFlags() {
	pf := rootCmd.PersistentFlags()
	cobra.CheckErr(viper.BindPFlag("reference_file", pf.Lookup("reference")))
	cobra.CheckErr(viper.BindPFlag("database", pf.Lookup("db")))

	rf := runCmd.Flags()
	cobra.CheckErr(viper.BindPFlag("workers", rf.Lookup("workers")))
	cobra.CheckErr(viper.BindPFlag("rounding", rf.Lookup("rounding")))
	cobra.CheckErr(viper.BindPFlag("trip_inheritance", rf.Lookup("inherit")))
	cobra.CheckErr(viper.BindPFlag("dedupe", rf.Lookup("dedupe")))

	mf := mappingCmd.PersistentFlags()
	cobra.CheckErr(viper.BindPFlag("mapping_pairs", mf.Lookup("pairs")))
	cobra.CheckErr(viper.BindPFlag("active_codes", mf.Lookup("active")))
	cobra.CheckErr(viper.BindPFlag("windows1251", mf.Lookup("win1251")))
}

// initConfig reads in the config file and environment variables.
func initConfig() {
	bindFlags()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.AddConfigPath(filepath.Join(home, ".railrec"))
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("railrec")
	}

	loadEnvFiles()

	viper.SetEnvPrefix("RAILREC")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// Missing config files are fine; flags and env cover everything.
	_ = viper.ReadInConfig()
}

// loadEnvFiles loads .env files before viper's env binding. Local overrides
// win over the shared file.
func loadEnvFiles() {
	for _, name := range []string{".env.local", ".env"} {
		if _, err := os.Stat(name); err == nil {
			_ = godotenv.Load(name)
		}
	}
}

// setup configures logging from the verbosity flags.
func setup(_ *cobra.Command, _ []string) error {
	cfg := logging.DefaultConfig()
	switch {
	case verbose:
		cfg.Level = "debug"
	case quiet:
		cfg.Level = "error"
	}
	logging.Configure(cfg)
	return nil
}
