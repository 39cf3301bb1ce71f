package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// spansCmd represents the spans command
var spansCmd = &cobra.Command{
	Use:   "spans",
	Short: "Inspect stored spans",
	Long:  `Inspect spans stored by the collector.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'spans' requires a subcommand (tail)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

func init() {
	rootCmd.AddCommand(spansCmd)
}
