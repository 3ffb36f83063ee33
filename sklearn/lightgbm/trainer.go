package lightgbm

import (
	"context"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gbtune/core/model"
	"github.com/YuminosukeSato/gbtune/dataset"
	"github.com/YuminosukeSato/gbtune/pkg/errors"
	"github.com/YuminosukeSato/gbtune/pkg/log"
)

// Trainer fits binary boosters. Per-call hyperparameters are applied on top
// of the base parameters. A Trainer holds no training state, so one value can
// serve many concurrent Fit calls.
type Trainer struct {
	base   TrainingParams
	Logger log.Logger
}

// NewTrainer creates a trainer whose unspecified parameters take the values
// in base.
func NewTrainer(base TrainingParams) *Trainer {
	return &Trainer{base: base}
}

// Name implements model.Named.
func (t *Trainer) Name() string { return "lightgbm" }

// ValidateParams implements model.ParamValidator.
func (t *Trainer) ValidateParams(params model.Params) error {
	_, err := Apply(t.base, params)
	return err
}

// Fit implements model.Trainer. It returns ctx.Err() when the context ends
// between boosting rounds.
func (t *Trainer) Fit(ctx context.Context, train *dataset.Dataset, params model.Params) (model.Model, error) {
	p, err := Apply(t.base, params)
	if err != nil {
		return nil, err
	}
	if train == nil || train.Rows() == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "lightgbm.Fit")
	}

	logger := t.Logger
	if logger == nil {
		logger = log.GetLoggerWithName("lightgbm.trainer")
	}

	m, err := newBooster(train, p).train(ctx, logger)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// booster holds the state of one training run.
type booster struct {
	params    TrainingParams
	objective ObjectiveFunction
	sampler   *SamplingStrategy

	x      *mat.Dense
	y      []float64
	rows   int
	cols   int
	sorted [][]int // row indices ordered by each feature's value

	scores    []float64
	gradients []float64
	hessians  []float64
	inNode    []bool

	features []string
}

func newBooster(train *dataset.Dataset, p TrainingParams) *booster {
	rows, cols := train.Rows(), train.NumFeatures()
	x := mat.DenseCopyOf(train.X())

	sorted := make([][]int, cols)
	for j := 0; j < cols; j++ {
		idx := make([]int, rows)
		for i := range idx {
			idx[i] = i
		}
		feature := j
		sort.SliceStable(idx, func(a, b int) bool {
			return x.At(idx[a], feature) < x.At(idx[b], feature)
		})
		sorted[j] = idx
	}

	return &booster{
		params:    p,
		objective: BinaryLogLoss{},
		sampler:   NewSamplingStrategy(p),
		x:         x,
		y:         train.Labels(),
		rows:      rows,
		cols:      cols,
		sorted:    sorted,
		scores:    make([]float64, rows),
		gradients: make([]float64, rows),
		hessians:  make([]float64, rows),
		inNode:    make([]bool, rows),
		features:  train.Features(),
	}
}

func (b *booster) train(ctx context.Context, logger log.Logger) (*Model, error) {
	initScore := b.objective.GetInitScore(b.y)
	for i := range b.scores {
		b.scores[i] = initScore
	}

	m := &Model{
		Trees:        make([]Tree, 0, b.params.NumIterations),
		InitScore:    initScore,
		NumFeatures:  b.cols,
		FeatureNames: b.features,
		Params:       b.params,
	}

	for iter := 0; iter < b.params.NumIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for i := 0; i < b.rows; i++ {
			b.gradients[i] = b.objective.CalculateGradient(b.scores[i], b.y[i])
			b.hessians[i] = b.objective.CalculateHessian(b.scores[i], b.y[i])
		}
		if err := errors.CheckNumericalStability("lightgbm.Fit gradients", b.gradients, iter); err != nil {
			return nil, err
		}
		if err := errors.CheckNumericalStability("lightgbm.Fit hessians", b.hessians, iter); err != nil {
			return nil, err
		}

		tree := b.buildTree(iter)
		for i := 0; i < b.rows; i++ {
			b.scores[i] += tree.Predict(b.x.RawRowView(i))
		}
		m.Trees = append(m.Trees, tree)

		if iter%10 == 0 || iter == b.params.NumIterations-1 {
			loss := b.loss()
			if err := errors.CheckScalar("lightgbm.Fit", loss, iter); err != nil {
				return nil, err
			}
			logger.Debug("Training progress",
				log.IterationKey, iter,
				log.LossKey, loss,
			)
		}
	}
	return m, nil
}

func (b *booster) loss() float64 {
	var total float64
	for i := 0; i < b.rows; i++ {
		total += b.objective.CalculateLoss(b.scores[i], b.y[i])
	}
	return total / float64(b.rows)
}

// splitInfo describes a candidate split of one node.
type splitInfo struct {
	feature   int
	threshold float64
	gain      float64
	found     bool
}

func (b *booster) buildTree(iter int) Tree {
	tree := Tree{ShrinkageRate: b.params.LearningRate}
	features := b.sampler.SampleFeatures(b.cols, iter)
	root := b.sampler.SampleInstances(b.rows, iter)
	leaves := 1
	b.buildNode(&tree, root, 0, features, &leaves)
	return tree
}

// buildNode grows the subtree over indices depth-first and returns its node
// id. leaves counts the leaves of the whole tree so num_leaves is honored.
func (b *booster) buildNode(tree *Tree, indices []int, depth int, features []int, leaves *int) int {
	nodeID := len(tree.Nodes)
	tree.Nodes = append(tree.Nodes, Node{LeftChild: -1, RightChild: -1, Count: len(indices)})

	var sumGrad, sumHess float64
	for _, idx := range indices {
		sumGrad += b.gradients[idx]
		sumHess += b.hessians[idx]
	}

	canSplit := *leaves < b.params.NumLeaves &&
		(b.params.MaxDepth <= 0 || depth < b.params.MaxDepth) &&
		len(indices) >= 2*b.params.MinDataInLeaf
	var best splitInfo
	if canSplit {
		best = b.findBestSplit(indices, features, sumGrad, sumHess)
	}
	if !best.found || best.gain <= b.params.MinGainToSplit {
		tree.Nodes[nodeID].LeafValue = b.leafValue(sumGrad, sumHess)
		return nodeID
	}

	var left, right []int
	for _, idx := range indices {
		if b.x.At(idx, best.feature) <= best.threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}

	*leaves++
	tree.Nodes[nodeID].SplitFeature = best.feature
	tree.Nodes[nodeID].Threshold = best.threshold
	tree.Nodes[nodeID].Gain = best.gain
	l := b.buildNode(tree, left, depth+1, features, leaves)
	r := b.buildNode(tree, right, depth+1, features, leaves)
	tree.Nodes[nodeID].LeftChild = l
	tree.Nodes[nodeID].RightChild = r
	return nodeID
}

func (b *booster) findBestSplit(indices, features []int, sumGrad, sumHess float64) splitInfo {
	for _, idx := range indices {
		b.inNode[idx] = true
	}
	defer func() {
		for _, idx := range indices {
			b.inNode[idx] = false
		}
	}()

	parentScore := b.score(sumGrad, sumHess)
	best := splitInfo{gain: math.Inf(-1)}
	ordered := make([]int, 0, len(indices))

	for _, j := range features {
		ordered = ordered[:0]
		for _, idx := range b.sorted[j] {
			if b.inNode[idx] {
				ordered = append(ordered, idx)
			}
		}

		var leftGrad, leftHess float64
		for k := 0; k < len(ordered)-1; k++ {
			idx := ordered[k]
			leftGrad += b.gradients[idx]
			leftHess += b.hessians[idx]

			v, next := b.x.At(idx, j), b.x.At(ordered[k+1], j)
			if v == next {
				continue
			}
			leftCount, rightCount := k+1, len(ordered)-k-1
			if leftCount < b.params.MinDataInLeaf || rightCount < b.params.MinDataInLeaf {
				continue
			}
			rightGrad, rightHess := sumGrad-leftGrad, sumHess-leftHess
			if leftHess < b.params.MinSumHessianInLeaf || rightHess < b.params.MinSumHessianInLeaf {
				continue
			}

			gain := b.score(leftGrad, leftHess) + b.score(rightGrad, rightHess) - parentScore
			if gain > best.gain {
				best = splitInfo{feature: j, threshold: (v + next) / 2, gain: gain, found: true}
			}
		}
	}
	return best
}

// thresholdL1 soft-thresholds a gradient sum by reg_alpha.
func (b *booster) thresholdL1(g float64) float64 {
	alpha := b.params.Alpha
	switch {
	case g > alpha:
		return g - alpha
	case g < -alpha:
		return g + alpha
	}
	return 0
}

func (b *booster) score(sumGrad, sumHess float64) float64 {
	g := b.thresholdL1(sumGrad)
	return 0.5 * g * g / (sumHess + b.params.Lambda + 1e-10)
}

func (b *booster) leafValue(sumGrad, sumHess float64) float64 {
	return -b.thresholdL1(sumGrad) / (sumHess + b.params.Lambda + 1e-10)
}
