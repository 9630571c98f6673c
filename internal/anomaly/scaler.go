// Package anomaly implements the per-user ensemble anomaly model: a
// standardizer plus three one-class detectors (isolation-forest-like,
// one-class-margin, local-density), their training pipeline, and the
// weighted prediction ensemble described in spec §4.5.
package anomaly

import "math"

// FitScaler computes a per-feature standardizer (zero mean, unit
// variance) over a matrix of session vectors, spec §4.5 step 1.
func FitScaler(vectors [][]float64) (mean, std []float64) {
	if len(vectors) == 0 {
		return nil, nil
	}
	n := len(vectors[0])
	mean = make([]float64, n)
	std = make([]float64, n)
	for _, v := range vectors {
		for i, x := range v {
			mean[i] += x
		}
	}
	for i := range mean {
		mean[i] /= float64(len(vectors))
	}
	for _, v := range vectors {
		for i, x := range v {
			d := x - mean[i]
			std[i] += d * d
		}
	}
	for i := range std {
		std[i] = math.Sqrt(std[i] / float64(len(vectors)))
		if std[i] == 0 {
			std[i] = 1 // degenerate feature: leave centered, unscaled
		}
	}
	return mean, std
}

// Scale applies a fitted standardizer to a single vector.
func Scale(v, mean, std []float64) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		m, s := 0.0, 1.0
		if i < len(mean) {
			m = mean[i]
		}
		if i < len(std) && std[i] != 0 {
			s = std[i]
		}
		out[i] = (v[i] - m) / s
	}
	return out
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
