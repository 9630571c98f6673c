package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func makeMoves(n int) []PointerRecord {
	recs := make([]PointerRecord, n)
	for i := 0; i < n; i++ {
		recs[i] = PointerRecord{
			Kind:         PointerMove,
			X:            float64(i * 10),
			Y:            float64(i * 5),
			Distance:     11.2,
			Velocity:     2.5 + float64(i%3),
			DirectionDeg: float64(i * 3 % 360),
			TsMs:         float64(i * 100),
		}
	}
	return recs
}

func TestExtractPointerBelowMinimum(t *testing.T) {
	assert.Empty(t, ExtractPointer(makeMoves(3)))
}

func TestExtractPointerDeterministic(t *testing.T) {
	recs := append(makeMoves(12), PointerRecord{Kind: PointerClick, X: 5, Y: 5, TsMs: 1300}, PointerRecord{Kind: PointerClick, X: 6, Y: 6, TsMs: 1600})
	a := ExtractPointer(recs)
	b := ExtractPointer(recs)
	assert.Equal(t, a, b)
	assert.Contains(t, a, "velocity_mean")
	assert.Contains(t, a, "click_precision")
}

func TestExtractPointerPathEfficiencyZeroDistance(t *testing.T) {
	recs := make([]PointerRecord, 12)
	for i := range recs {
		recs[i] = PointerRecord{Kind: PointerMove, X: 1, Y: 1, Distance: 0, Velocity: 0, TsMs: float64(i * 50)}
	}
	feats := ExtractPointer(recs)
	assert.Equal(t, 1.0, feats["path_efficiency"])
}
