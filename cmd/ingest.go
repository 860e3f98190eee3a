package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ads-radar/internal/dates"
	"github.com/sells-group/ads-radar/internal/monitoring"
)

var (
	ingestDate string
	ingestDays int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch daily metrics and store them",
	Long:  "Fetches one day of metric rows from the configured source and replaces that day's stored rows. With --days N, backfills the N days ending at --date.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		end, err := dates.Parse(ingestDate, time.Now())
		if err != nil {
			return err
		}
		days := ingestDays
		if days < 1 {
			days = 1
		}
		start := end.AddDate(0, 0, -(days - 1))

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		source := newSource()
		total := 0
		for _, day := range dates.Range(start, end) {
			rows, err := source.FetchDaily(ctx, day)
			if err != nil {
				return err
			}
			if err := st.ReplaceDailyMetrics(ctx, day, rows); err != nil {
				return err
			}
			monitoring.RowsIngested.WithLabelValues("cli").Add(float64(len(rows)))
			total += len(rows)
			zap.L().Info("ingested day",
				zap.String("date", dates.Format(day)),
				zap.Int("rows", len(rows)),
			)
		}

		zap.L().Info("ingest complete",
			zap.String("start", dates.Format(start)),
			zap.String("end", dates.Format(end)),
			zap.Int("rows", total),
		)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDate, "date", "today", "date to ingest (YYYY-MM-DD, today, yesterday)")
	ingestCmd.Flags().IntVar(&ingestDays, "days", 1, "number of days to backfill, ending at --date")
	rootCmd.AddCommand(ingestCmd)
}
