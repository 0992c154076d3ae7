package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tradeforge/papersim/market"
	"github.com/tradeforge/papersim/replay"
)

var replayCmd = &cobra.Command{
	Use:   "replay <ticks.csv>",
	Short: "Replay a recorded tick file",
	Long: `Replay a CSV tick recording (time,symbol,bid,ask) onto a price board
and print each quote as it lands. Useful for sanity-checking recordings
before feeding them into a simulation.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

var replaySpeed float64

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 0, "playback speed multiplier (0 = no pacing)")
}

func runReplay(cmd *cobra.Command, args []string) error {
	ticks, err := replay.LoadFile(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("replaying %d ticks from %s\n", len(ticks), args[0])

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	board := market.NewBoard()
	if err := replay.NewPlayer(board, ticks).Run(ctx, replaySpeed); err != nil {
		return err
	}

	seen := map[string]bool{}
	for _, t := range ticks {
		if seen[t.Symbol] {
			continue
		}
		seen[t.Symbol] = true
		if q, ok := board.Get(t.Symbol); ok {
			fmt.Printf("  %-8s last bid %.5f ask %.5f at %s\n",
				q.Symbol, q.Bid, q.Ask, q.Time.Format("15:04:05"))
		}
	}
	return nil
}
