package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ads-radar/internal/api"
	"github.com/sells-group/ads-radar/internal/dates"
	"github.com/sells-group/ads-radar/internal/detect"
	"github.com/sells-group/ads-radar/internal/model"
	"github.com/sells-group/ads-radar/internal/store"
)

var (
	detectDate    string
	detectStart   string
	detectEnd     string
	detectMinZ    float64
	detectPersist bool
	detectJSON    bool
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Score stored metrics for anomalies",
	Long:  "Scores each ad group's observations against its trailing EWMA baseline. Defaults to a single-day run for --date; give --start and --end for a range scan.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		now := time.Now()

		var start, end time.Time
		var err error
		if detectStart != "" || detectEnd != "" {
			if start, err = dates.Parse(detectStart, now); err != nil {
				return err
			}
			if end, err = dates.Parse(detectEnd, now); err != nil {
				return err
			}
		} else {
			if start, err = dates.Parse(detectDate, now); err != nil {
				return err
			}
			end = start
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		detector := detect.NewDetector(cfg.Detect.Span)
		scanner := detect.NewScanner(detector, st, cfg.Detect.LookbackDays)

		minZ := detectMinZ
		if minZ <= 0 {
			minZ = cfg.Detect.MinZ
		}

		anomalies, err := scanner.Scan(ctx, start, end, minZ)
		if err != nil {
			return err
		}

		if detectPersist {
			anomalies, err = persistByDay(ctx, st, anomalies)
			if err != nil {
				return err
			}
		}

		if detectJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(api.NewAnomalyPayloads(anomalies))
		}
		printAnomalyTable(anomalies)
		return nil
	},
}

// persistByDay groups anomalies by detection date and replaces each day's
// stored set, returning the stored copies with IDs assigned.
func persistByDay(ctx context.Context, st store.Store, anomalies []model.Anomaly) ([]model.Anomaly, error) {
	byDay := make(map[time.Time][]model.Anomaly)
	var order []time.Time
	for _, a := range anomalies {
		if _, ok := byDay[a.Date]; !ok {
			order = append(order, a.Date)
		}
		byDay[a.Date] = append(byDay[a.Date], a)
	}

	var out []model.Anomaly
	for _, day := range order {
		stored, err := st.ReplaceAnomalies(ctx, day, byDay[day])
		if err != nil {
			return nil, err
		}
		out = append(out, stored...)
		zap.L().Info("persisted anomalies",
			zap.String("date", dates.Format(day)),
			zap.Int("count", len(stored)),
		)
	}
	return out, nil
}

// printAnomalyTable renders a compact summary to stdout.
func printAnomalyTable(anomalies []model.Anomaly) {
	if len(anomalies) == 0 {
		fmt.Println("no anomalies")
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tAD GROUP\tMETRIC\tDIR\tZ\tOBSERVED\tEXPECTED")
	for _, a := range anomalies {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.3f\t%g\t%g\n",
			dates.Format(a.Date), a.AdGroupID, a.Metric, a.Direction,
			a.ZScore, a.Observed, a.Expected)
	}
	tw.Flush()
}

func init() {
	detectCmd.Flags().StringVar(&detectDate, "date", "today", "single date to score")
	detectCmd.Flags().StringVar(&detectStart, "start", "", "range start (YYYY-MM-DD)")
	detectCmd.Flags().StringVar(&detectEnd, "end", "", "range end (YYYY-MM-DD)")
	detectCmd.Flags().Float64Var(&detectMinZ, "min-z", 0, "z-score threshold (default from config)")
	detectCmd.Flags().BoolVar(&detectPersist, "persist", false, "replace each day's stored anomalies with the results")
	detectCmd.Flags().BoolVar(&detectJSON, "json", false, "emit JSON instead of a table")
	rootCmd.AddCommand(detectCmd)
}
