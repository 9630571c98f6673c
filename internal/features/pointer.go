package features

import "math"

type PointerKind string

const (
	PointerMove  PointerKind = "move"
	PointerClick PointerKind = "click"
)

// PointerRecord is one raw pointer event, per spec §4.3. Move records
// carry X/Y/Distance/Velocity/DirectionDeg; click records carry
// X/Y/Button.
type PointerRecord struct {
	Kind        PointerKind
	X, Y        float64
	Distance    float64
	Velocity    float64
	DirectionDeg float64
	Button      string
	TsMs        float64
}

const (
	minPointerRecords = 10
	minMoveRecords    = 5
)

// ExtractPointer computes the per-batch pointer feature map per spec
// §4.3. All names are later prefixed "ms_" in session aggregation.
func ExtractPointer(records []PointerRecord) map[string]float64 {
	var moves, clicks []PointerRecord
	for _, r := range records {
		switch r.Kind {
		case PointerMove:
			moves = append(moves, r)
		case PointerClick:
			clicks = append(clicks, r)
		}
	}
	if len(records) < minPointerRecords || len(moves) < minMoveRecords {
		return map[string]float64{}
	}

	out := map[string]float64{}

	velocities := make([]float64, len(moves))
	for i, m := range moves {
		velocities[i] = m.Velocity
	}
	out["velocity_mean"] = mean(velocities)
	out["velocity_std"] = stddev(velocities)
	out["velocity_skewness"] = skewness(velocities)
	out["velocity_kurtosis"] = kurtosis(velocities)

	var totalDist float64
	for _, m := range moves {
		totalDist += m.Distance
	}
	start, end := moves[0], moves[len(moves)-1]
	straight := straightLineDist(start.X, start.Y, end.X, end.Y)
	if totalDist == 0 {
		out["path_efficiency"] = 1
	} else {
		out["path_efficiency"] = straight / totalDist
	}

	var deltaV []float64
	for i := 1; i < len(moves); i++ {
		deltaV = append(deltaV, math.Abs(moves[i].Velocity-moves[i-1].Velocity))
	}
	out["movement_smoothness"] = 1 / (1 + mean(deltaV))
	out["acceleration_consistency"] = 1 / (1 + variance(deltaV))

	bigTurns := 0
	for i := 1; i < len(moves); i++ {
		diff := math.Abs(moves[i].DirectionDeg - moves[i-1].DirectionDeg)
		if diff > 180 {
			diff = 360 - diff
		}
		if diff > 45 {
			bigTurns++
		}
	}
	ndirs := len(moves) - 1
	if ndirs > 0 {
		out["direction_consistency"] = Clamp(1-float64(bigTurns)/float64(ndirs), 0, 1)
	}

	pauses := 0
	microMoves := 0
	for _, m := range moves {
		if m.Velocity < 0.1 {
			pauses++
		}
		if m.Distance < 5 {
			microMoves++
		}
	}
	out["pause_frequency"] = float64(pauses) / float64(len(moves))
	out["micro_movement_ratio"] = float64(microMoves) / float64(len(moves))

	maxLag := len(velocities) / 2
	if maxLag > 10 {
		maxLag = 10
	}
	var rhythmSum float64
	rhythmCount := 0
	for lag := 1; lag < maxLag; lag++ {
		v := math.Abs(autocorr(velocities, lag))
		rhythmSum += Sanitize(v)
		rhythmCount++
	}
	if rhythmCount > 0 {
		out["rhythm"] = rhythmSum / float64(rhythmCount)
	}

	if len(clicks) > 0 {
		var pairDists []float64
		for i := 0; i < len(clicks); i++ {
			for j := i + 1; j < len(clicks); j++ {
				pairDists = append(pairDists, straightLineDist(clicks[i].X, clicks[i].Y, clicks[j].X, clicks[j].Y))
			}
		}
		out["click_precision"] = 1 / (1 + mean(pairDists)/100)

		doubleClicks := 0
		var interClickGaps []float64
		for i := 1; i < len(clicks); i++ {
			dt := clicks[i].TsMs - clicks[i-1].TsMs
			interClickGaps = append(interClickGaps, dt)
			if dt < 500 {
				doubleClicks++
			}
		}
		out["double_click_rate"] = float64(doubleClicks) / float64(len(clicks))
		out["click_duration_variance"] = variance(interClickGaps)
	}

	for k, v := range out {
		out[k] = Sanitize(v)
	}
	return out
}
