package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the base command for beectl
var rootCmd = &cobra.Command{
	Use:   "beectl",
	Short: "Manage the sqlbee span collector",
	Long: `beectl manages the sqlbee span collector and its database.

sqlbee instruments database queries and sends a span per query to a
collector. beectl runs the collector, manages its schema, and inspects
the spans it has stored.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
