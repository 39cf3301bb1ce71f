package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sqlbee/sqlbee/pkg/config"
	"github.com/sqlbee/sqlbee/pkg/store"
)

// spansTailCmd represents the spans tail command
var spansTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Show the most recent spans for a dataset",
	Long: `Show the most recent spans for a dataset, newest last.

With --follow, keep polling the span store and print new spans as they
arrive.

Example:
  beectl spans tail --dataset sqlbee
  beectl spans tail --dataset production --limit 50 --follow`,
	Run: func(cmd *cobra.Command, args []string) {
		dataset, _ := cmd.Flags().GetString("dataset")
		limit, _ := cmd.Flags().GetInt("limit")
		follow, _ := cmd.Flags().GetBool("follow")
		output, _ := cmd.Flags().GetString("output")

		if dataset == "" {
			dataset = config.Get().Dataset
		}

		if err := tailSpans(dataset, limit, follow, output); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to tail spans: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	spansCmd.AddCommand(spansTailCmd)
	spansTailCmd.Flags().StringP("dataset", "d", "", "Dataset to tail (default: configured dataset)")
	spansTailCmd.Flags().IntP("limit", "n", 20, "Number of spans to show")
	spansTailCmd.Flags().BoolP("follow", "f", false, "Keep polling for new spans")
	spansTailCmd.Flags().StringP("output", "o", "table", "Output format (table or json)")
}

func tailSpans(dataset string, limit int, follow bool, output string) error {
	spanStore, err := store.NewStore()
	if err != nil {
		return err
	}
	if spanStore == nil {
		return fmt.Errorf("SQLBEE_DATABASE_URL or DATABASE_URL environment variable is required")
	}
	defer func() { _ = spanStore.Close() }()

	var lastID int64
	lastID, err = printSpans(spanStore, dataset, limit, lastID, output)
	if err != nil {
		return err
	}

	for follow {
		time.Sleep(2 * time.Second)
		lastID, err = printSpans(spanStore, dataset, limit, lastID, output)
		if err != nil {
			return err
		}
	}

	return nil
}

// printSpans prints spans newer than sinceID in chronological order and
// returns the newest ID seen.
func printSpans(spanStore *store.Store, dataset string, limit int, sinceID int64, output string) (int64, error) {
	spans, err := spanStore.List(dataset, limit)
	if err != nil {
		return sinceID, err
	}

	// List returns newest first; flip to chronological for display
	newest := sinceID
	var toPrint []store.StoredSpan
	for i := len(spans) - 1; i >= 0; i-- {
		span := spans[i]
		if span.ID <= sinceID {
			continue
		}
		toPrint = append(toPrint, span)
		if span.ID > newest {
			newest = span.ID
		}
	}

	if len(toPrint) == 0 {
		return newest, nil
	}

	if output == "json" {
		enc := json.NewEncoder(os.Stdout)
		for _, span := range toPrint {
			if err := enc.Encode(span); err != nil {
				return newest, err
			}
		}
		return newest, nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	for _, span := range toPrint {
		query, _ := span.Fields["db.query"].(string)
		fmt.Fprintf(
			w,
			"%s\t%s\t%.2fms\t%s\n",
			span.Timestamp.Format(time.RFC3339),
			span.Name,
			span.DurationMs,
			query,
		)
	}
	return newest, w.Flush()
}
