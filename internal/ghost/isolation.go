// SPDX-License-Identifier: Apache-2.0

package ghost

import (
	"math"
	"math/rand"
)

// IsolationModel is an isolation forest over the ghost feature vectors. It
// is built once per run from the whole population and is immutable
// afterwards, so a model can be shared by concurrent scorers and unit-tested
// against synthetic data in isolation.
//
// Score convention follows isolation-based scorers: Score returns a value in
// (-1, 0]; shorter average isolation path means more anomalous means more
// negative.
type IsolationModel struct {
	trees      []*isoNode
	sampleSize int
	norm       float64 // c(sampleSize), the expected path length normalizer
}

type isoNode struct {
	// Interior node: split on feature dim at value split.
	dim         int
	split       float64
	left, right *isoNode
	// Leaf: remaining population size.
	leaf bool
	size int
}

const (
	defaultTrees      = 100
	defaultSampleSize = 256
	// Fixed seed: model construction must be deterministic so identical
	// input snapshots produce identical findings.
	modelSeed = 42
)

// FitIsolationModel builds the forest from the full feature population.
// points must be non-empty; every point carries the same dimensionality.
func FitIsolationModel(points [][]float64) *IsolationModel {
	sampleSize := defaultSampleSize
	if len(points) < sampleSize {
		sampleSize = len(points)
	}
	maxDepth := int(math.Ceil(math.Log2(float64(sampleSize)))) + 1

	rng := rand.New(rand.NewSource(modelSeed))
	m := &IsolationModel{
		trees:      make([]*isoNode, 0, defaultTrees),
		sampleSize: sampleSize,
		norm:       avgPathLength(sampleSize),
	}

	for t := 0; t < defaultTrees; t++ {
		sample := subsample(points, sampleSize, rng)
		m.trees = append(m.trees, buildTree(sample, 0, maxDepth, rng))
	}
	return m
}

// Score returns the normalized anomaly score for one point: -s where s is
// the standard isolation score 2^(-E[h(x)]/c(n)). Range (-1, 0]; values
// below roughly -0.6 indicate clear isolation.
func (m *IsolationModel) Score(point []float64) float64 {
	total := 0.0
	for _, tree := range m.trees {
		total += pathLength(tree, point, 0)
	}
	avg := total / float64(len(m.trees))
	if m.norm == 0 {
		return 0
	}
	return -math.Pow(2, -avg/m.norm)
}

func subsample(points [][]float64, n int, rng *rand.Rand) [][]float64 {
	if n >= len(points) {
		return points
	}
	idx := rng.Perm(len(points))[:n]
	sample := make([][]float64, n)
	for i, j := range idx {
		sample[i] = points[j]
	}
	return sample
}

func buildTree(points [][]float64, depth, maxDepth int, rng *rand.Rand) *isoNode {
	if len(points) <= 1 || depth >= maxDepth {
		return &isoNode{leaf: true, size: len(points)}
	}

	dims := len(points[0])
	// Pick a split dimension that still has spread; give up after one pass
	// over the dimensions (all-identical subsample).
	order := rng.Perm(dims)
	for _, dim := range order {
		lo, hi := points[0][dim], points[0][dim]
		for _, p := range points[1:] {
			if p[dim] < lo {
				lo = p[dim]
			}
			if p[dim] > hi {
				hi = p[dim]
			}
		}
		if hi <= lo {
			continue
		}

		split := lo + rng.Float64()*(hi-lo)
		var left, right [][]float64
		for _, p := range points {
			if p[dim] < split {
				left = append(left, p)
			} else {
				right = append(right, p)
			}
		}
		if len(left) == 0 || len(right) == 0 {
			return &isoNode{leaf: true, size: len(points)}
		}
		return &isoNode{
			dim:   dim,
			split: split,
			left:  buildTree(left, depth+1, maxDepth, rng),
			right: buildTree(right, depth+1, maxDepth, rng),
		}
	}
	return &isoNode{leaf: true, size: len(points)}
}

func pathLength(node *isoNode, point []float64, depth int) float64 {
	if node.leaf {
		return float64(depth) + avgPathLength(node.size)
	}
	if point[node.dim] < node.split {
		return pathLength(node.left, point, depth+1)
	}
	return pathLength(node.right, point, depth+1)
}

const eulerMascheroni = 0.5772156649

// avgPathLength is c(n), the expected path length of an unsuccessful BST
// search over n points, used to normalize isolation depths.
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	h := math.Log(float64(n-1)) + eulerMascheroni
	return 2*h - 2*float64(n-1)/float64(n)
}
