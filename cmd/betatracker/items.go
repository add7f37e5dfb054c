package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/domain"
)

var (
	itemsJSON   bool
	itemsStatus string
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "List tracked items",
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := application.Items(cmd.Context())
		if err != nil {
			return err
		}
		if itemsJSON {
			return writeJSON(os.Stdout, state)
		}
		printItems(os.Stdout, state, domain.Status(itemsStatus))
		return nil
	},
}

func init() {
	itemsCmd.Flags().BoolVar(&itemsJSON, "json", false, "print the whole item store as JSON")
	itemsCmd.Flags().StringVar(&itemsStatus, "status", "", `only list items with this status (e.g. "public beta")`)
	rootCmd.AddCommand(itemsCmd)
}

func statusColor(s domain.Status) func(a ...interface{}) string {
	switch s {
	case domain.StatusPublicBeta:
		return color.New(color.FgCyan).SprintFunc()
	case domain.StatusPrivateBeta:
		return color.New(color.FgMagenta).SprintFunc()
	case domain.StatusLive:
		return color.New(color.FgGreen).SprintFunc()
	case domain.StatusSunset:
		return color.New(color.FgRed).SprintFunc()
	default:
		return color.New(color.FgHiBlack).SprintFunc()
	}
}

func printItems(w io.Writer, state domain.StoreState, only domain.Status) {
	gray := color.New(color.FgHiBlack).SprintFunc()

	shown := 0
	for _, key := range state.SortedKeys() {
		item := state.Items[key]
		if only != "" && item.Status != only {
			continue
		}
		shown++

		cats := make([]string, 0, len(item.Categories))
		for _, c := range item.Categories {
			cats = append(cats, string(c))
		}
		fmt.Fprintf(w, "%-14s %s %s\n", statusColor(item.Status)(string(item.Status)), item.Title,
			gray("("+strings.Join(cats, ", ")+")"))
		fmt.Fprintf(w, "               %s\n", gray(fmt.Sprintf("first seen %s, last seen %s, %d transition(s)",
			item.FirstSeen.Format("2006-01-02"), item.LastSeen.Format("2006-01-02"), len(item.History)-1)))
	}

	fmt.Fprintf(w, "\n%d item(s), %d scan(s), last scan %s\n", shown, state.ScanCount, lastScan(state))
}

func lastScan(state domain.StoreState) string {
	if state.LastScan.IsZero() {
		return "never"
	}
	return state.LastScan.Format("2006-01-02 15:04:05 MST")
}
