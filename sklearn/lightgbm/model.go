package lightgbm

import (
	"math"

	"github.com/YuminosukeSato/gbtune/pkg/errors"
)

// Node is a single node of a decision tree. Leaves have no children.
type Node struct {
	LeftChild    int     `json:"left_child"`  // -1 for leaves
	RightChild   int     `json:"right_child"` // -1 for leaves
	SplitFeature int     `json:"split_feature"`
	Threshold    float64 `json:"threshold"`
	Gain         float64 `json:"gain,omitempty"`
	LeafValue    float64 `json:"leaf_value"`
	Count        int     `json:"count"`
}

// IsLeaf returns true if the node is a leaf node
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// Tree is one regression tree of the ensemble. Nodes[0] is the root.
type Tree struct {
	Nodes         []Node  `json:"nodes"`
	ShrinkageRate float64 `json:"shrinkage"`
}

// Predict returns the shrunk leaf value reached by features. Values at or
// below a threshold go left; NaN goes right.
func (t *Tree) Predict(features []float64) float64 {
	nodeID := 0
	for nodeID >= 0 && nodeID < len(t.Nodes) {
		node := &t.Nodes[nodeID]
		if node.IsLeaf() {
			return node.LeafValue * t.ShrinkageRate
		}
		if features[node.SplitFeature] <= node.Threshold {
			nodeID = node.LeftChild
		} else {
			nodeID = node.RightChild
		}
	}
	return 0
}

// NumLeaves counts the leaves of the tree.
func (t *Tree) NumLeaves() int {
	n := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			n++
		}
	}
	return n
}

// Depth returns the number of edges on the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(id int) int
	walk = func(id int) int {
		n := &t.Nodes[id]
		if n.IsLeaf() {
			return 0
		}
		return 1 + max(walk(n.LeftChild), walk(n.RightChild))
	}
	if len(t.Nodes) == 0 {
		return 0
	}
	return walk(0)
}

// Model is a trained binary booster. It implements model.Model.
type Model struct {
	Trees        []Tree         `json:"trees"`
	InitScore    float64        `json:"init_score"`
	NumFeatures  int            `json:"num_features"`
	FeatureNames []string       `json:"feature_names,omitempty"`
	Params       TrainingParams `json:"params"`
}

// NumTrees returns the number of boosting rounds actually kept.
func (m *Model) NumTrees() int { return len(m.Trees) }

// PredictRaw returns the log-odds score of one record.
func (m *Model) PredictRaw(features []float64) (float64, error) {
	if len(features) != m.NumFeatures {
		return 0, errors.NewDimensionError("lightgbm.PredictRaw", m.NumFeatures, len(features), 1)
	}
	score := m.InitScore
	for i := range m.Trees {
		score += m.Trees[i].Predict(features)
	}
	return score, nil
}

// PredictProbability returns P(positive | features).
func (m *Model) PredictProbability(features []float64) (float64, error) {
	raw, err := m.PredictRaw(features)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(raw) {
		return 0, errors.NewNumericalInstabilityError("lightgbm.PredictProbability", []float64{raw}, 0)
	}
	return sigmoid(raw), nil
}

// FeatureImportance returns the total split gain per feature.
func (m *Model) FeatureImportance() []float64 {
	imp := make([]float64, m.NumFeatures)
	for _, t := range m.Trees {
		for _, n := range t.Nodes {
			if !n.IsLeaf() {
				imp[n.SplitFeature] += n.Gain
			}
		}
	}
	return imp
}
