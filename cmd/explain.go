package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/ads-radar/internal/explain"
)

var explainCmd = &cobra.Command{
	Use:   "explain <anomaly-id>",
	Short: "Print remediation guidance for a stored anomaly",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		a, err := st.GetAnomaly(ctx, args[0])
		if err != nil {
			return err
		}
		if a == nil {
			return eris.Errorf("anomaly not found: %s", args[0])
		}

		advice := explain.Explain(*a)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"anomaly_id": a.ID,
			"summary":    advice.Summary,
			"actions":    advice.Actions,
		})
	},
}

func init() {
	rootCmd.AddCommand(explainCmd)
}
