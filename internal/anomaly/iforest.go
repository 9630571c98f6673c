package anomaly

import (
	"math"
	"math/rand"

	"pos-saas/internal/domain"
)

const eulerMascheroni = 0.5772156649015329

// avgPathNorm is sklearn's c(n): the expected path length of an
// unsuccessful search in a binary search tree of n nodes, used to
// normalize a tree's observed path length into a comparable scale.
func avgPathNorm(n int) float64 {
	if n <= 1 {
		return 0
	}
	h := math.Log(float64(n-1)) + eulerMascheroni
	return 2*h - 2*float64(n-1)/float64(n)
}

// FitIForest builds an isolation-forest-like ensemble of random
// partitioning trees, spec §4.5 (`iforest.n_estimators=100`).
func FitIForest(vectors [][]float64, nEstimators int, rng *rand.Rand) domain.IForestModel {
	subsampleSize := len(vectors)
	if subsampleSize > 256 {
		subsampleSize = 256
	}
	maxDepth := int(math.Ceil(math.Log2(math.Max(float64(subsampleSize), 2))))

	trees := make([]domain.IsolationTree, nEstimators)
	for t := 0; t < nEstimators; t++ {
		sample := bootstrapSample(vectors, subsampleSize, rng)
		nodes := make([]domain.TreeNode, 0, subsampleSize*2)
		buildIsolationNode(sample, 0, maxDepth, rng, &nodes)
		trees[t] = domain.IsolationTree{Nodes: nodes}
	}

	return domain.IForestModel{
		Trees:         trees,
		SubsampleSize: subsampleSize,
		NormC:         avgPathNorm(subsampleSize),
	}
}

func bootstrapSample(vectors [][]float64, size int, rng *rand.Rand) [][]float64 {
	out := make([][]float64, size)
	for i := range out {
		out[i] = vectors[rng.Intn(len(vectors))]
	}
	return out
}

// buildIsolationNode recursively partitions data on a random feature
// and random split value, appending flattened nodes to *nodes and
// returning the index of the node just appended.
func buildIsolationNode(data [][]float64, depth, maxDepth int, rng *rand.Rand, nodes *[]domain.TreeNode) int {
	if depth >= maxDepth || len(data) <= 1 {
		idx := len(*nodes)
		*nodes = append(*nodes, domain.TreeNode{IsLeaf: true, Size: len(data)})
		return idx
	}

	nFeatures := len(data[0])
	feature := rng.Intn(nFeatures)
	lo, hi := data[0][feature], data[0][feature]
	for _, v := range data {
		if v[feature] < lo {
			lo = v[feature]
		}
		if v[feature] > hi {
			hi = v[feature]
		}
	}
	if lo == hi {
		idx := len(*nodes)
		*nodes = append(*nodes, domain.TreeNode{IsLeaf: true, Size: len(data)})
		return idx
	}
	threshold := lo + rng.Float64()*(hi-lo)

	var left, right [][]float64
	for _, v := range data {
		if v[feature] < threshold {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		idx := len(*nodes)
		*nodes = append(*nodes, domain.TreeNode{IsLeaf: true, Size: len(data)})
		return idx
	}

	selfIdx := len(*nodes)
	*nodes = append(*nodes, domain.TreeNode{Feature: feature, Threshold: threshold})
	leftIdx := buildIsolationNode(left, depth+1, maxDepth, rng, nodes)
	rightIdx := buildIsolationNode(right, depth+1, maxDepth, rng, nodes)
	(*nodes)[selfIdx].Left = leftIdx
	(*nodes)[selfIdx].Right = rightIdx
	return selfIdx
}

func pathLength(tree domain.IsolationTree, x []float64) float64 {
	depth := 0.0
	idx := 0
	if len(tree.Nodes) == 0 {
		return 0
	}
	for {
		node := tree.Nodes[idx]
		if node.IsLeaf {
			return depth + avgPathNorm(node.Size)
		}
		if x[node.Feature] < node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
		depth++
	}
}

// ScoreIForest returns the raw decision score (sklearn convention:
// lower = more anomalous), matching the `s` in spec §4.5's
// normalization formula `clamp((0.5-s)/1.0,0,1)`.
func ScoreIForest(model domain.IForestModel, x []float64) (float64, bool) {
	if len(model.Trees) == 0 || model.NormC == 0 {
		return 0, false
	}
	var total float64
	for _, tree := range model.Trees {
		total += pathLength(tree, x)
	}
	avg := total / float64(len(model.Trees))
	anomalyScore := math.Pow(2, -avg/model.NormC)
	return 0.5 - anomalyScore, true
}
