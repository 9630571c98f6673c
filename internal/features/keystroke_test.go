package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seeds the suite's scenario 2: dwell {80,90,85,95,88}ms, flights {50,55,48,52}ms.
func TestExtractKeystrokeSeedScenario(t *testing.T) {
	dwells := []float64{80, 90, 85, 95, 88}
	downs := []float64{0, 130, 275, 408, 555}
	records := make([]KeyRecord, len(dwells))
	for i, d := range dwells {
		records[i] = KeyRecord{KeyCode: "a", DownTsMs: downs[i], UpTsMs: downs[i] + d}
	}

	feats := ExtractKeystroke(records)
	require.NotEmpty(t, feats)
	assert.InDelta(t, 87.6, feats["avg_dwell_time"], 0.01)
	assert.InDelta(t, 51.25, feats["avg_flight_time"], 0.01)

	durationS := (downs[len(downs)-1] - downs[0]) / 1000.0
	assert.InDelta(t, float64(len(records))/durationS, feats["typing_cadence"], 1e-9)
}

func TestExtractKeystrokeBelowMinimum(t *testing.T) {
	feats := ExtractKeystroke([]KeyRecord{{DownTsMs: 0, UpTsMs: 10}})
	assert.Empty(t, feats)
}

func TestExtractKeystrokeDeterministic(t *testing.T) {
	records := []KeyRecord{
		{KeyCode: "a", DownTsMs: 0, UpTsMs: 90},
		{KeyCode: "b", DownTsMs: 150, UpTsMs: 230},
		{KeyCode: "Backspace", DownTsMs: 300, UpTsMs: 380, IsSpecial: true},
		{KeyCode: "c", DownTsMs: 420, UpTsMs: 500},
		{KeyCode: "d", DownTsMs: 600, UpTsMs: 670},
	}
	a := ExtractKeystroke(records)
	b := ExtractKeystroke(records)
	assert.Equal(t, a, b)
}

func TestSignatureDeterministic(t *testing.T) {
	feats := map[string]float64{
		"avg_dwell_time":         87.6,
		"avg_flight_time":        51.25,
		"typing_cadence":         5.5,
		"pressure_consistency":   0.9,
		"typing_rhythm_variance": 8.2,
	}
	s1 := Signature(feats)
	s2 := Signature(feats)
	assert.Equal(t, s1, s2)
	assert.NotEmpty(t, s1)
}
