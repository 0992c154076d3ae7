// Package cli wires the papersim commands.
package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "papersim",
	Short:         "Paper-trading simulation core",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	flagConfigPath string
	flagDBPath     string
	flagLogLevel   string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "path to YAML config file (optional, built-in defaults otherwise)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "SQLite journal database (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level: debug|info|warn|error")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		lvl, err := logrus.ParseLevel(flagLogLevel)
		if err != nil {
			return fmt.Errorf("log level: %w", err)
		}
		logrus.SetLevel(lvl)
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return nil
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
