package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/domain"
)

var scanJSON bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan over every configured source",
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := application.Scan(cmd.Context())
		if err != nil {
			return err
		}
		if scanJSON {
			return writeJSON(os.Stdout, report)
		}
		printReport(os.Stdout, report)
		return nil
	},
}

func init() {
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "print the scan report as JSON")
	rootCmd.AddCommand(scanCmd)
}

func printReport(w io.Writer, report domain.ScanReport) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(w, "%s\n", cyan(fmt.Sprintf("=== Scan #%d (%s) ===", report.ScanNumber, report.ScanID)))
	fmt.Fprintf(w, "%s\n\n", gray(fmt.Sprintf("took %s, %d duplicates dropped",
		report.CompletedAt.Sub(report.StartedAt).Round(time.Millisecond), report.DuplicatesDropped)))

	fmt.Fprintln(w, yellow("Sources:"))
	for _, s := range report.Sources {
		line := fmt.Sprintf("  %-24s %-9s %3d found  %3d kept  %3d rejected", s.Name, s.Kind, s.Candidates, s.Accepted, s.Rejected)
		switch {
		case s.Error != "":
			fmt.Fprintf(w, "%s  %s\n", red(line), gray(s.Error))
		case s.Candidates == 0:
			fmt.Fprintln(w, yellow(line))
		default:
			fmt.Fprintln(w, line)
		}
	}
	if report.EmptySources > 0 {
		fmt.Fprintf(w, "  %s\n", yellow(fmt.Sprintf("%d source(s) returned nothing", report.EmptySources)))
	}
	fmt.Fprintln(w)

	changes := report.Changes
	if changes.Empty() {
		fmt.Fprintln(w, gray("No changes."))
		return
	}

	for _, item := range changes.New {
		fmt.Fprintf(w, "%s %s %s\n", green("+"), item.Title, gray("["+string(item.Status)+"]"))
	}
	for _, sc := range changes.StatusChanges {
		fmt.Fprintf(w, "%s %s: %s -> %s\n", yellow("~"), sc.Title, sc.From, green(string(sc.To)))
	}
	for _, u := range changes.Updated {
		fmt.Fprintf(w, "%s %s %s\n", cyan("*"), u.Title, gray(fmt.Sprintf("(%d -> %d chars)", u.PreviousLength, u.Length)))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
