// Package explain maps detected anomalies to canned remediation guidance.
// It consumes anomaly fields only and is fully decoupled from the scoring
// math.
package explain

import (
	"fmt"
	"strings"

	"github.com/sells-group/ads-radar/internal/model"
)

// Advice is the human-readable guidance for one anomaly.
type Advice struct {
	Summary string   `json:"summary"`
	Actions []string `json:"actions"`
}

// maxActions caps how many hints a single anomaly gets.
const maxActions = 3

type playbookKey struct {
	metric    model.Metric
	direction model.Direction
}

// playbooks covers every scored (metric, direction) pair. Pairs absent from
// the map get an empty action list, not an error.
var playbooks = map[playbookKey][]string{
	{model.MetricCost, model.DirectionUp}: {
		"Budget reallocation drifted to this ad group; verify shared budget caps.",
		"Broader queries matched; review search terms and add negatives.",
		"Auction pressure increased; check Impression Share Lost (rank).",
	},
	{model.MetricCost, model.DirectionDown}: {
		"Budget limited or bid caps too tight; inspect daily pacing.",
		"Eligibility dropped due to policy or ad disapprovals.",
		"Audience or geo targeting narrowed unintentionally.",
	},
	{model.MetricCTR, model.DirectionUp}: {
		"New ad variant resonating; consider rolling out to siblings.",
		"Query mix shifted to higher-intent terms.",
		"Position improved; monitor CPC impact.",
	},
	{model.MetricCTR, model.DirectionDown}: {
		"New competitor creative suppressing CTR; refresh headlines.",
		"Broader matching reduced relevance; tighten keywords/negatives.",
		"Ad assets missing; improve ad strength.",
	},
	{model.MetricCVR, model.DirectionUp}: {
		"Landing page improvements or offer alignment.",
		"Higher-intent queries; protect with exact and phrase.",
		"Lead quality filter changes or conversion tracking fixes.",
	},
	{model.MetricCVR, model.DirectionDown}: {
		"Landing issues (speed/form); run a form health check.",
		"Query mix shifted; segment by term and adjust bids.",
		"Attribution or conversion tag malfunction.",
	},
}

// Explain builds the advice for an anomaly. Unknown (metric, direction)
// pairs yield a summary with no actions.
func Explain(a model.Anomaly) Advice {
	hints := playbooks[playbookKey{metric: a.Metric, direction: a.Direction}]
	if len(hints) > maxActions {
		hints = hints[:maxActions]
	}
	actions := make([]string, len(hints))
	copy(actions, hints)

	summary := fmt.Sprintf("%s moved %s (z=%g). Observed %g vs expected %g.",
		strings.ToUpper(string(a.Metric)), a.Direction, a.ZScore, a.Observed, a.Expected)
	return Advice{Summary: summary, Actions: actions}
}
