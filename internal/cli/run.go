package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tradeforge/papersim/config"
	"github.com/tradeforge/papersim/core"
	"github.com/tradeforge/papersim/journal"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation until interrupted",
	Long: `Start the tick generator and trade monitor and keep them running.

The simulation restores any open trades and performance records from the
journal database before starting, and shuts down cleanly on SIGINT/SIGTERM.

Example:
  papersim run --config papersim.yaml`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var runSeed int64

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "price path seed (0 = random)")
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if flagConfigPath != "" {
		loaded, err := config.LoadFromFile(flagConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if flagDBPath != "" {
		cfg.Journal.DBPath = flagDBPath
	}
	return cfg, cfg.Validate()
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	j, err := journal.NewSQLite(cfg.Journal.DBPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	log := logrus.StandardLogger()
	c := core.New(cfg, j, runSeed, log)
	if err := c.Restore(); err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	c.Start()
	defer c.Stop()

	log.WithFields(logrus.Fields{
		"instruments": len(cfg.Instruments),
		"journal":     cfg.Journal.DBPath,
	}).Info("papersim running, ctrl-c to stop")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.WithField("signal", s.String()).Info("shutting down")
	return nil
}
