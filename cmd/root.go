package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ads-radar/internal/config"
	"github.com/sells-group/ads-radar/internal/dates"
	"github.com/sells-group/ads-radar/internal/ingest"
	"github.com/sells-group/ads-radar/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "ads-radar",
	Short: "Ad performance anomaly radar",
	Long:  "Ingests daily ad metrics, scores today's values against EWMA baselines per ad group, and explains what moved.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// openStore opens the configured backend and applies migrations.
func openStore(ctx context.Context) (store.Store, error) {
	s, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// newSource returns the configured metrics source. The mock source injects
// its demonstration anomalies on the current date, matching how the
// synthetic account is meant to be demoed.
func newSource() ingest.Source {
	return ingest.NewMockSource(cfg.Ingest.Seed, dates.Day(time.Now()))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
