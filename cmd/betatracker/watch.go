package main

import (
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Scan now and then on the configured interval until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return application.Watch(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
