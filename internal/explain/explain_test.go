package explain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ads-radar/internal/model"
)

func TestExplain_KnownPair(t *testing.T) {
	a := model.Anomaly{
		Metric:    model.MetricCost,
		Direction: model.DirectionUp,
		ZScore:    3.12,
		Observed:  512.5,
		Expected:  80.2,
	}
	got := Explain(a)
	assert.Equal(t, "COST moved up (z=3.12). Observed 512.5 vs expected 80.2.", got.Summary)
	require.Len(t, got.Actions, 3)
	assert.Contains(t, got.Actions[0], "Budget reallocation")
}

func TestExplain_EveryScoredPairHasActions(t *testing.T) {
	metrics := []model.Metric{model.MetricCost, model.MetricCTR, model.MetricCVR}
	directions := []model.Direction{model.DirectionUp, model.DirectionDown}
	for _, m := range metrics {
		for _, d := range directions {
			got := Explain(model.Anomaly{Metric: m, Direction: d})
			assert.Len(t, got.Actions, 3, "%s/%s", m, d)
		}
	}
}

func TestExplain_UnknownPair(t *testing.T) {
	got := Explain(model.Anomaly{Metric: model.MetricROAS, Direction: model.DirectionUp})
	assert.NotNil(t, got.Actions)
	assert.Empty(t, got.Actions)
	assert.Contains(t, got.Summary, "ROAS moved up")
}

func TestExplain_ActionsAreCopies(t *testing.T) {
	a := model.Anomaly{Metric: model.MetricCTR, Direction: model.DirectionDown}
	first := Explain(a)
	first.Actions[0] = "mutated"
	second := Explain(a)
	assert.NotEqual(t, "mutated", second.Actions[0])
}
