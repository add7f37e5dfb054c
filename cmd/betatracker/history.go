package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/domain"
)

var (
	historyDay  string
	historyJSON bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the change sets recorded on one day",
	RunE: func(cmd *cobra.Command, args []string) error {
		day := time.Now().UTC()
		if historyDay != "" {
			parsed, err := time.Parse("2006-01-02", historyDay)
			if err != nil {
				return fmt.Errorf("invalid --day %q: expected YYYY-MM-DD", historyDay)
			}
			day = parsed
		}

		entries, err := application.History(cmd.Context(), day)
		if err != nil {
			return err
		}
		if historyJSON {
			return writeJSON(os.Stdout, entries)
		}
		printHistory(os.Stdout, day, entries)
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyDay, "day", "", "day to show, YYYY-MM-DD (default today, UTC)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print the snapshots as JSON")
	rootCmd.AddCommand(historyCmd)
}

func printHistory(w io.Writer, day time.Time, entries []domain.HistorySnapshot) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(w, "%s\n", cyan("=== "+day.Format("2006-01-02")+" ==="))
	if len(entries) == 0 {
		fmt.Fprintln(w, gray("No scans recorded."))
		return
	}

	for _, e := range entries {
		fmt.Fprintf(w, "\n#%d %s %s\n", e.ScanNumber, e.CompletedAt.Format("15:04:05"), gray(e.ScanID))
		if e.Changes.Empty() {
			fmt.Fprintf(w, "  %s\n", gray("no changes"))
			continue
		}
		for _, item := range e.Changes.New {
			fmt.Fprintf(w, "  + %s [%s]\n", item.Title, item.Status)
		}
		for _, sc := range e.Changes.StatusChanges {
			fmt.Fprintf(w, "  ~ %s: %s -> %s\n", sc.Title, sc.From, sc.To)
		}
		for _, u := range e.Changes.Updated {
			fmt.Fprintf(w, "  * %s (%d -> %d chars)\n", u.Title, u.PreviousLength, u.Length)
		}
	}
}
