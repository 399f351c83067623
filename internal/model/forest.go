package model

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"

	"github.com/couchcryptid/reservoir-scenario-service/internal/domain"
)

// ForestParams are the hyperparameters searched by the grid.
type ForestParams struct {
	NEstimators int `msgpack:"n_estimators" json:"n_estimators"`
	// MaxDepth of zero grows trees until leaves are pure.
	MaxDepth int `msgpack:"max_depth" json:"max_depth"`
}

func (p ForestParams) String() string {
	depth := "none"
	if p.MaxDepth > 0 {
		depth = fmt.Sprint(p.MaxDepth)
	}
	return fmt.Sprintf("n_estimators=%d max_depth=%s", p.NEstimators, depth)
}

const minSamplesSplit = 2

// TreeNode is one node of a regression tree. Leaves have Feature -1.
type TreeNode struct {
	Feature   int     `msgpack:"f"`
	Threshold float64 `msgpack:"t"`
	Left      int     `msgpack:"l"`
	Right     int     `msgpack:"r"`
	Value     float64 `msgpack:"v"`
}

// Tree is a regression tree stored as a flat node array rooted at index 0.
type Tree struct {
	Nodes []TreeNode `msgpack:"nodes"`
}

func (t *Tree) predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// RandomForest averages bootstrapped CART regression trees.
type RandomForest struct {
	Features []string     `msgpack:"features"`
	Params   ForestParams `msgpack:"params"`
	Trees    []Tree       `msgpack:"trees"`
}

// FitForest grows params.NEstimators trees, each on a bootstrap sample drawn
// from its own generator seeded by seed and the tree index. Splits minimise
// the squared error and consider every feature.
func FitForest(names []string, X [][]float64, y []float64, params ForestParams, seed uint64) (*RandomForest, error) {
	n := len(X)
	if n == 0 || len(y) != n {
		return nil, fmt.Errorf("fit forest: %w: %d rows, %d targets", domain.ErrInsufficientData, n, len(y))
	}
	if params.NEstimators <= 0 {
		return nil, fmt.Errorf("fit forest: n_estimators must be positive, got %d", params.NEstimators)
	}
	for i, row := range X {
		if len(row) != len(names) {
			return nil, fmt.Errorf("fit forest: %w: row %d has %d values, want %d", domain.ErrFeatureMismatch, i, len(row), len(names))
		}
	}

	f := &RandomForest{
		Features: slices.Clone(names),
		Params:   params,
		Trees:    make([]Tree, params.NEstimators),
	}
	for t := range f.Trees {
		rng := rand.New(rand.NewPCG(seed, uint64(t)))
		sample := make([]int, n)
		for i := range sample {
			sample[i] = rng.IntN(n)
		}
		b := &treeBuilder{X: X, y: y, maxDepth: params.MaxDepth}
		b.grow(sample, 0)
		f.Trees[t] = Tree{Nodes: b.nodes}
	}
	return f, nil
}

// Predict averages the tree predictions at x.
func (f *RandomForest) Predict(x []float64) float64 {
	var sum float64
	for i := range f.Trees {
		sum += f.Trees[i].predict(x)
	}
	return sum / float64(len(f.Trees))
}

// FeatureNames returns the feature order the forest was fit with.
func (f *RandomForest) FeatureNames() []string {
	return f.Features
}

// validate checks that every split reads a known feature and points at
// children stored after it, so prediction always ends in a leaf.
func (f *RandomForest) validate() error {
	for t, tree := range f.Trees {
		n := len(tree.Nodes)
		if n == 0 {
			return fmt.Errorf("%w: tree %d has no nodes", ErrCorruptArtifact, t)
		}
		for i, node := range tree.Nodes {
			if node.Feature < 0 {
				continue
			}
			if node.Feature >= len(f.Features) {
				return fmt.Errorf("%w: tree %d node %d splits on feature %d of %d", ErrCorruptArtifact, t, i, node.Feature, len(f.Features))
			}
			if node.Left <= i || node.Left >= n || node.Right <= i || node.Right >= n {
				return fmt.Errorf("%w: tree %d node %d has children %d and %d outside (%d, %d)", ErrCorruptArtifact, t, i, node.Left, node.Right, i, n)
			}
		}
	}
	return nil
}

type treeBuilder struct {
	X        [][]float64
	y        []float64
	maxDepth int
	nodes    []TreeNode
}

// grow appends the subtree for idx and returns its node index.
func (b *treeBuilder) grow(idx []int, depth int) int {
	self := len(b.nodes)
	b.nodes = append(b.nodes, TreeNode{Feature: -1, Value: b.mean(idx)})

	if len(idx) < minSamplesSplit || (b.maxDepth > 0 && depth >= b.maxDepth) {
		return self
	}
	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		return self
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	if len(left) == 0 || len(right) == 0 {
		return self
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[self] = TreeNode{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return self
}

func (b *treeBuilder) mean(idx []int) float64 {
	var sum float64
	for _, i := range idx {
		sum += b.y[i]
	}
	return sum / float64(len(idx))
}

// bestSplit scans every feature for the midpoint threshold with the lowest
// total squared error. It reports false when no split reduces the error.
func (b *treeBuilder) bestSplit(idx []int) (int, float64, bool) {
	n := len(idx)
	var total, totalSq float64
	for _, i := range idx {
		total += b.y[i]
		totalSq += b.y[i] * b.y[i]
	}
	parentSSE := totalSq - total*total/float64(n)
	if parentSSE <= 1e-12 {
		return 0, 0, false
	}

	bestSSE := parentSSE
	bestFeature, bestThreshold, found := 0, 0.0, false
	sorted := make([]int, n)

	for feature := range b.X[idx[0]] {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool { return b.X[sorted[a]][feature] < b.X[sorted[c]][feature] })

		var leftSum, leftSq float64
		for k := 0; k < n-1; k++ {
			v := b.y[sorted[k]]
			leftSum += v
			leftSq += v * v

			x0, x1 := b.X[sorted[k]][feature], b.X[sorted[k+1]][feature]
			if x0 == x1 {
				continue
			}
			nl, nr := float64(k+1), float64(n-k-1)
			rightSum, rightSq := total-leftSum, totalSq-leftSq
			sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
			if sse < bestSSE-1e-12 {
				bestSSE = sse
				bestFeature = feature
				bestThreshold = x0 + (x1-x0)/2
				if bestThreshold >= x1 {
					bestThreshold = x0
				}
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}
