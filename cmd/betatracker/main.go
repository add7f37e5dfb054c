package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/app"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/config"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/logging"
	"github.com/CRMbyRSM/hubspot-beta-tracker/internal/usecase"
)

var application *app.Application

var rootCmd = &cobra.Command{
	Use:           "betatracker",
	Short:         "Track HubSpot beta programs and product launches",
	Long:          `Scans the configured changelog, product-update and community sources, tracks every announced item and records how its status moves over time.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

		a, err := app.New(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		application = a
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if application == nil {
			return nil
		}
		return application.Close()
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if application != nil {
			_ = application.Close()
		}
		if errors.Is(err, usecase.ErrPersist) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
