package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tradeforge/papersim/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the trade journal",
	Long: `Query and display journal records from the SQLite database.

Examples:
  papersim journal trade <trade-id>
  papersim journal history <owner> --limit 20
  papersim journal stats <owner>`,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Show one trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalHistoryCmd = &cobra.Command{
	Use:   "history <owner>",
	Short: "List an owner's closed trades, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalHistory,
}

var journalStatsCmd = &cobra.Command{
	Use:   "stats <owner>",
	Short: "Show an owner's performance record",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalStats,
}

var journalHistoryLimit int

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTradeCmd)
	journalCmd.AddCommand(journalHistoryCmd)
	journalCmd.AddCommand(journalStatsCmd)

	journalHistoryCmd.Flags().IntVar(&journalHistoryLimit, "limit", 20, "maximum trades to list (0 = all)")
}

func openJournal() (*journal.SQLite, error) {
	path := flagDBPath
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		path = cfg.Journal.DBPath
	}
	return journal.NewSQLite(path)
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	rec, ok, err := j.GetTrade(args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}
	if !ok {
		return fmt.Errorf("trade %q not found", args[0])
	}
	printTrade(rec)
	return nil
}

func runJournalHistory(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	recs, err := j.TradeHistory(args[0], journalHistoryLimit)
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}
	if len(recs) == 0 {
		fmt.Println("no closed trades")
		return nil
	}
	for _, rec := range recs {
		fmt.Printf("%-28s %-8s %-4s %8.2f  pnl %+10.2f  %s  %s\n",
			rec.TradeID, rec.Symbol, rec.Direction, rec.Lots, rec.PnL,
			rec.CloseReason, rec.CloseTime.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runJournalStats(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	s, ok, err := j.LoadStats(args[0])
	if err != nil {
		return fmt.Errorf("load stats: %w", err)
	}
	if !ok {
		fmt.Printf("no performance record for %q\n", args[0])
		return nil
	}

	fmt.Printf("Owner:            %s\n", s.Owner)
	fmt.Printf("Trades:           %d (%d W / %d L / %d BE)\n", s.TotalTrades, s.Wins, s.Losses, s.BreakEvens)
	fmt.Printf("Win rate:         %.1f%%\n", s.WinRate)
	fmt.Printf("Total P&L:        %+.2f\n", s.TotalPnL)
	fmt.Printf("Profit factor:    %.2f\n", s.ProfitFactor)
	fmt.Printf("Largest win/loss: %+.2f / %+.2f\n", s.LargestWin, s.LargestLoss)
	fmt.Printf("Max drawdown:     %.2f%%\n", s.MaxDrawdownPct)
	fmt.Printf("Consistency:      %.1f\n", s.ConsistencyScore)
	fmt.Printf("Rule violations:  %d\n", s.RuleViolations)
	fmt.Printf("Equity points:    %d\n", len(s.EquityCurve))
	return nil
}

func printTrade(rec journal.TradeRecord) {
	var b strings.Builder
	fmt.Fprintf(&b, "Trade %s\n", rec.TradeID)
	fmt.Fprintf(&b, "  Owner:    %s\n", rec.Owner)
	fmt.Fprintf(&b, "  Symbol:   %s %s x %.2f\n", rec.Symbol, rec.Direction, rec.Lots)
	fmt.Fprintf(&b, "  Entry:    %.5f (SL %.5f / TP %.5f)\n", rec.EntryPrice, rec.StopLoss, rec.TakeProfit)
	fmt.Fprintf(&b, "  Risk:     %.2f%%  RR %.2f\n", rec.RiskPct, rec.RR)
	fmt.Fprintf(&b, "  Status:   %s", rec.Status)
	if rec.Status == "CLOSED" {
		fmt.Fprintf(&b, " (%s, %s)\n", rec.Result, rec.CloseReason)
		fmt.Fprintf(&b, "  Exit:     %.5f  pnl %+.2f\n", rec.ExitPrice, rec.PnL)
		fmt.Fprintf(&b, "  Balance:  %.2f -> %.2f\n", rec.BalanceBefore, rec.BalanceAfter)
		fmt.Fprintf(&b, "  Closed:   %s\n", rec.CloseTime.Local().Format("2006-01-02 15:04:05"))
	} else {
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "  Opened:   %s\n", rec.OpenTime.Local().Format("2006-01-02 15:04:05"))
	fmt.Print(b.String())
}
