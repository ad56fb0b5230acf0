package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "o2c-integration-hub",
	Short: "Order-to-cash integration hub",
	Long: `Accepts order payloads over an authenticated HTTP API, publishes them
as durable SalesOrderCreated events, and loads processed events into the
reporting database.`,
	Run: func(cmd *cobra.Command, args []string) {
		err := cmd.Help()
		if err != nil {
			log.Error().Err(err).Msg("Failed to display help")
		}
	},
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize()
}
