package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateSessionKeystrokeOnly(t *testing.T) {
	events := []AggregatedEvent{
		{Kind: "keystroke", Timestamp: 0, Features: map[string]float64{"avg_dwell_time": 80, "avg_flight_time": 50, "typing_rhythm_variance": 4, "error_correction_rate": 0.1}},
		{Kind: "keystroke", Timestamp: 1, Features: map[string]float64{"avg_dwell_time": 84, "avg_flight_time": 52, "typing_rhythm_variance": 5, "error_correction_rate": 0.2}},
	}
	agg := AggregateSession(events)
	require.Contains(t, agg, "ks_avg_dwell_time_mean")
	assert.InDelta(t, 82, agg["ks_avg_dwell_time_mean"], 0.01)
	assert.Contains(t, agg, "ks_dwell_consistency")
	assert.Contains(t, agg, "ks_rhythm_stability")
}

func TestAggregateSessionCrossModalRequiresBothKinds(t *testing.T) {
	events := []AggregatedEvent{
		{Kind: "keystroke", Timestamp: 0, Features: map[string]float64{"avg_dwell_time": 80}},
	}
	agg := AggregateSession(events)
	_, ok := agg["cross_ks_ms_ratio"]
	assert.False(t, ok)
}

func TestVectorDefaultsMissingToZero(t *testing.T) {
	v := Vector(map[string]float64{"ks_avg_dwell_time_mean": 1.5})
	require.Len(t, v, len(Vocabulary))
	assert.Equal(t, 1.5, v[VocabularyIndex["ks_avg_dwell_time_mean"]])
	assert.Equal(t, 0.0, v[VocabularyIndex["cross_ks_ms_ratio"]])
}

func TestVectorSanitizesNaNAndInf(t *testing.T) {
	nan := 0.0
	nan = nan / nan
	v := Vector(map[string]float64{"temporal_event_rate": nan})
	assert.Equal(t, 0.0, v[VocabularyIndex["temporal_event_rate"]])
}
