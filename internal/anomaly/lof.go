package anomaly

import (
	"sort"

	"pos-saas/internal/domain"
)

const defaultLOFNeighbors = 20

// FitLOF builds a local-density novelty model: for every training
// vector it precomputes its k-distance and local reachability
// density so ScoreLOF can evaluate new points without rescanning the
// whole fit each time. Spec §4.5: `lof.n_neighbors=20 novelty=true`.
func FitLOF(vectors [][]float64, k int) domain.LOFModel {
	if k <= 0 {
		k = defaultLOFNeighbors
	}
	if k >= len(vectors) {
		k = len(vectors) - 1
	}
	if k < 1 {
		k = 1
	}

	n := len(vectors)
	kDistance := make([]float64, n)
	neighborIdx := make([][]int, n)
	for i, v := range vectors {
		idx, dists := kNearest(vectors, v, i, k)
		neighborIdx[i] = idx
		kDistance[i] = dists[len(dists)-1]
	}

	lrd := make([]float64, n)
	for i := range vectors {
		var sum float64
		for _, j := range neighborIdx[i] {
			sum += reachDist(vectors[i], vectors[j], kDistance[j])
		}
		if sum == 0 {
			lrd[i] = 0
		} else {
			lrd[i] = float64(len(neighborIdx[i])) / sum
		}
	}

	return domain.LOFModel{TrainingVectors: vectors, K: k, TrainLRD: lrd, KDistance: kDistance}
}

type neighborDist struct {
	idx  int
	dist float64
}

// kNearest returns the k nearest neighbor indices (excluding self)
// and their distances, sorted ascending.
func kNearest(vectors [][]float64, x []float64, selfIdx, k int) ([]int, []float64) {
	cands := make([]neighborDist, 0, len(vectors))
	for i, v := range vectors {
		if i == selfIdx {
			continue
		}
		cands = append(cands, neighborDist{i, euclidean(x, v)})
	}
	sort.Slice(cands, func(a, b int) bool { return cands[a].dist < cands[b].dist })
	if k > len(cands) {
		k = len(cands)
	}
	idx := make([]int, k)
	dists := make([]float64, k)
	for i := 0; i < k; i++ {
		idx[i] = cands[i].idx
		dists[i] = cands[i].dist
	}
	return idx, dists
}

func reachDist(x, o []float64, kDistO float64) float64 {
	d := euclidean(x, o)
	if d > kDistO {
		return d
	}
	return kDistO
}

// ScoreLOF returns the raw negative local-outlier-factor (sklearn
// novelty convention: inliers near -1, outliers more negative),
// the `s` in spec §4.5's `clamp((-s-1)/2.0,0,1)`.
func ScoreLOF(model domain.LOFModel, x []float64) (float64, bool) {
	if len(model.TrainingVectors) == 0 {
		return 0, false
	}
	idx, _ := kNearest(model.TrainingVectors, x, -1, model.K)
	var reachSum float64
	for _, j := range idx {
		reachSum += reachDist(x, model.TrainingVectors[j], model.KDistance[j])
	}
	var lrdX float64
	if reachSum > 0 {
		lrdX = float64(len(idx)) / reachSum
	}
	if lrdX == 0 {
		return -1, true
	}
	var ratioSum float64
	for _, j := range idx {
		ratioSum += model.TrainLRD[j] / lrdX
	}
	lof := ratioSum / float64(len(idx))
	return -lof, true
}
