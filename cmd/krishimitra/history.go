package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/Harshanhkp24/KrishiMitra/internal/models"
	"github.com/Harshanhkp24/KrishiMitra/internal/repository"

	"github.com/spf13/cobra"
)

func newHistoryCmd(configPath *string) *cobra.Command {
	var (
		stats  bool
		format string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Replay the prediction history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.predictor.ListHistory(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if stats {
				return printStats(cmd, models.Summarize(records))
			}
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			case "csv":
				return repository.WriteCSV(out, records)
			case "table":
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TIMESTAMP\tSOIL\tRAINFALL\tTEMPERATURE\tCROP")
				for _, r := range records {
					fmt.Fprintf(tw, "%s\t%s\t%g\t%g\t%s\n",
						r.Timestamp.Format(time.RFC3339), r.SoilType, r.Rainfall, r.Temperature, r.PredictedCrop)
				}
				return tw.Flush()
			default:
				return fmt.Errorf("unknown format %q (want table, json or csv)", format)
			}
		},
	}
	cmd.Flags().BoolVar(&stats, "stats", false, "print per-crop totals instead of rows")
	cmd.Flags().StringVarP(&format, "format", "o", "table", "output format: table, json or csv")
	return cmd
}

func printStats(cmd *cobra.Command, stats models.HistoryStats) error {
	crops := make([]string, 0, len(stats.ByCrop))
	for crop := range stats.ByCrop {
		crops = append(crops, crop)
	}
	sort.Strings(crops)

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CROP\tCOUNT")
	for _, crop := range crops {
		fmt.Fprintf(tw, "%s\t%d\n", crop, stats.ByCrop[crop])
	}
	fmt.Fprintf(tw, "TOTAL\t%d\n", stats.Total)
	return tw.Flush()
}
