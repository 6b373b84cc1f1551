// Package cmd implements the invoice-recon command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"invoice-grn-reconciliation/pkg/logger"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "invoice-recon",
	Short: "Reconcile supplier invoices against goods receipt notes",
	Long: `invoice-recon matches supplier invoices against goods receipt notes (GRNs),
scores each candidate pairing, and classifies the variance between what was
billed and what was received.

Invoices and receipts are loaded from CSV files into a local SQLite database,
reconciled in batches, and reported as console, JSON, or CSV output. Records
that automatic matching could not settle can be resolved manually with the
match command.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns any error encountered
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		NewCLIErrorHandler(viper.GetBool("verbose"), os.Stderr).HandleError(err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.invoice-recon.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in the config file and environment variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".invoice-recon")
		}
	}

	viper.SetEnvPrefix("INVOICE_RECON")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// initLogging installs a global logger matching the verbosity flag
func initLogging() error {
	config := logger.ProductionConfig()
	if viper.GetBool("verbose") {
		config = logger.DebugConfig()
	}

	log, err := logger.NewLogger(config)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	logger.SetGlobalLogger(log)
	return nil
}

// SetVersionInfo configures the version string shown by --version
func SetVersionInfo(version, commit, date string) {
	rootCmd.Version = getVersionString(version, commit, date)
}

func getVersionString(version, commit, date string) string {
	result := version
	if commit != "" && commit != "none" {
		result += fmt.Sprintf(" (commit: %s)", commit)
	}
	if date != "" && date != "unknown" {
		result += fmt.Sprintf(" (built: %s)", date)
	}
	return result
}
